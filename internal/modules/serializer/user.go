package serializer

import (
	"net/url"
	"strings"

	"github.com/waggle-sensor/facilities/internal/modules/model"
)

type User struct {
	URL           string `json:"url"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	IsStaff       bool   `json:"is_staff"`
	IsSuperuser   bool   `json:"is_superuser"`
	IsApproved    bool   `json:"is_approved"`
	SSHPublicKeys string `json:"ssh_public_keys"`
}

// UserURL is the canonical API location of a user.
func UserURL(baseURL, username string) string {
	return strings.TrimRight(baseURL, "/") + "/api/v1/users/" + url.PathEscape(username)
}

func NewUser(u *model.User, baseURL string) User {
	return User{
		URL:           UserURL(baseURL, u.Username),
		Username:      u.Username,
		Email:         u.Email,
		Name:          u.Name,
		IsStaff:       u.IsStaff,
		IsSuperuser:   u.IsSuperuser,
		IsApproved:    u.IsApproved,
		SSHPublicKeys: u.SSHPublicKeys,
	}
}

func NewUsers(us []*model.User, baseURL string) []User {
	out := make([]User, 0, len(us))
	for _, u := range us {
		out = append(out, NewUser(u, baseURL))
	}
	return out
}

// Profile is the self-service view of a user. Username is read-only.
type Profile struct {
	Username      string `json:"username"`
	Organization  string `json:"organization"`
	Department    string `json:"department"`
	Bio           string `json:"bio"`
	SSHPublicKeys string `json:"ssh_public_keys"`
}

func NewProfile(u *model.User) Profile {
	return Profile{
		Username:      u.Username,
		Organization:  u.Organization,
		Department:    u.Department,
		Bio:           u.Bio,
		SSHPublicKeys: u.SSHPublicKeys,
	}
}
