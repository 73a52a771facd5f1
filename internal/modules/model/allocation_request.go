package model

import (
	"time"

	"github.com/waggle-sensor/facilities/internal/pkg/formschema"
)

type ProjectRequestType string

const (
	ProjectRequestNew   ProjectRequestType = "new"
	ProjectRequestRenew ProjectRequestType = "renew"
	ProjectRequestAdd   ProjectRequestType = "add"
)

func (ProjectRequestType) Choices() []formschema.Choice {
	return []formschema.Choice{
		{Value: string(ProjectRequestNew), Label: "Request new project"},
		{Value: string(ProjectRequestRenew), Label: "Renew existing project"},
		{Value: string(ProjectRequestAdd), Label: "Request add to existing project"},
	}
}

func (t ProjectRequestType) Valid() bool {
	return formschema.HasChoice(t, string(t))
}

// NeedsExistingProject reports whether the request targets a project that already exists.
func (t ProjectRequestType) NeedsExistingProject() bool {
	return t == ProjectRequestRenew || t == ProjectRequestAdd
}

type ProposalChoice string

const (
	ProposalYes ProposalChoice = "Yes"
	ProposalNo  ProposalChoice = "No"
)

func (ProposalChoice) Choices() []formschema.Choice {
	return []formschema.Choice{
		{Value: string(ProposalYes), Label: "Yes"},
		{Value: string(ProposalNo), Label: "No"},
	}
}

func (p ProposalChoice) Valid() bool {
	return formschema.HasChoice(p, string(p))
}

type AllocationRequest struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	ProjectRequestType ProjectRequestType `gorm:"type:varchar(10);not null;default:'new';index" json:"project_request_type"`
	ExistingProjectID  *uint              `gorm:"index" json:"existing_project"`
	Username           string             `gorm:"type:varchar(255);not null;uniqueIndex" json:"username"`

	PIName           *string `gorm:"type:varchar(255)" json:"pi_name"`
	PIEmail          *string `gorm:"type:varchar(254)" json:"pi_email"`
	PIInstitution    *string `gorm:"type:varchar(255)" json:"pi_institution"`
	ProjectTitle     *string `gorm:"type:varchar(255)" json:"project_title"`
	ProjectWebsite   *string `gorm:"type:varchar(200)" json:"project_website"`
	ProjectShortName *string `gorm:"type:varchar(100)" json:"project_short_name"`

	ScienceFields []ScienceField `gorm:"many2many:allocation_request_science_fields;constraint:OnDelete:CASCADE;" json:"science_fields"`

	RelatedToProposal *ProposalChoice `gorm:"type:varchar(10)" json:"related_to_proposal"`
	Justification     *string         `gorm:"type:text" json:"justification"`

	FundingSources []FundingSource `gorm:"many2many:allocation_request_funding_sources;constraint:OnDelete:CASCADE;" json:"funding_sources"`

	AccessRunningApps bool `gorm:"not null;default:false" json:"access_running_apps"`
	AccessShell       bool `gorm:"not null;default:false" json:"access_shell"`
	AccessDownload    bool `gorm:"not null;default:false" json:"access_download"`
	InterestInHPC     bool `gorm:"column:interest_in_hpc;not null;default:false" json:"interest_in_hpc"`

	Comments   *string `gorm:"type:text" json:"comments"`
	IsApproved bool    `gorm:"not null;default:false;index" json:"is_approved"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// AllocationRequest <-> Project, kept when the project goes away
	ExistingProject *Project `gorm:"foreignKey:ExistingProjectID;references:ID;constraint:OnDelete:SET NULL,OnUpdate:CASCADE;" json:"-"`
}

func (AllocationRequest) TableName() string { return "allocation_requests" }

// AccessPermissionFields lists the boolean access flags a request can ask for.
var AccessPermissionFields = []string{"access_running_apps", "access_shell", "access_download"}
