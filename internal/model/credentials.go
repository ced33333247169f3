package model

type UserRole string

const (
	UserRoleStudent   UserRole = "student"
	UserRoleAdvisor   UserRole = "advisor"
	UserRoleCommittee UserRole = "committee"
	UserRoleIndustry  UserRole = "industry"
)

// Credentials - сохранённый между запусками bearer-токен и роль.
type Credentials struct {
	Token     string   `json:"access_token"`
	TokenType string   `json:"token_type"`
	Role      UserRole `json:"role"`
	Subject   string   `json:"subject"` // gsuite_id, под которым выполнен вход
}

func (c Credentials) Empty() bool { return c.Token == "" }
