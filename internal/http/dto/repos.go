package dto

type SetConnectedReposRequest struct {
	Repos []string `json:"repos" binding:"required,dive,min=3,max=255"`
}
