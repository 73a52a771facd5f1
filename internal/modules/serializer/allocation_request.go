package serializer

import (
	"time"

	"github.com/waggle-sensor/facilities/internal/modules/model"
)

type AllocationRequest struct {
	ProjectRequestType model.ProjectRequestType `json:"project_request_type"`
	ExistingProject    *uint                    `json:"existing_project"`
	Username           string                   `json:"username"`
	PIName             *string                  `json:"pi_name"`
	PIEmail            *string                  `json:"pi_email"`
	PIInstitution      *string                  `json:"pi_institution"`
	ProjectTitle       *string                  `json:"project_title"`
	ProjectWebsite     *string                  `json:"project_website"`
	ProjectShortName   *string                  `json:"project_short_name"`
	ScienceFields      []string                 `json:"science_fields"`
	RelatedToProposal  *model.ProposalChoice    `json:"related_to_proposal"`
	Justification      *string                  `json:"justification"`
	FundingSources     []uint                   `json:"funding_sources"`
	AccessRunningApps  bool                     `json:"access_running_apps"`
	AccessShell        bool                     `json:"access_shell"`
	AccessDownload     bool                     `json:"access_download"`
	InterestInHPC      bool                     `json:"interest_in_hpc"`
	Comments           *string                  `json:"comments"`
	IsApproved         bool                     `json:"is_approved"`
	CreatedAt          time.Time                `json:"created_at"`
}

func NewAllocationRequest(ar *model.AllocationRequest) AllocationRequest {
	out := AllocationRequest{
		ProjectRequestType: ar.ProjectRequestType,
		ExistingProject:    ar.ExistingProjectID,
		Username:           ar.Username,
		PIName:             ar.PIName,
		PIEmail:            ar.PIEmail,
		PIInstitution:      ar.PIInstitution,
		ProjectTitle:       ar.ProjectTitle,
		ProjectWebsite:     ar.ProjectWebsite,
		ProjectShortName:   ar.ProjectShortName,
		ScienceFields:      make([]string, 0, len(ar.ScienceFields)),
		RelatedToProposal:  ar.RelatedToProposal,
		Justification:      ar.Justification,
		FundingSources:     make([]uint, 0, len(ar.FundingSources)),
		AccessRunningApps:  ar.AccessRunningApps,
		AccessShell:        ar.AccessShell,
		AccessDownload:     ar.AccessDownload,
		InterestInHPC:      ar.InterestInHPC,
		Comments:           ar.Comments,
		IsApproved:         ar.IsApproved,
		CreatedAt:          ar.CreatedAt,
	}
	for _, sf := range ar.ScienceFields {
		out.ScienceFields = append(out.ScienceFields, sf.Name)
	}
	for _, fs := range ar.FundingSources {
		out.FundingSources = append(out.FundingSources, fs.ID)
	}
	return out
}

func NewAllocationRequests(ars []*model.AllocationRequest) []AllocationRequest {
	out := make([]AllocationRequest, 0, len(ars))
	for _, ar := range ars {
		out = append(out, NewAllocationRequest(ar))
	}
	return out
}
