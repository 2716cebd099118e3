package dto

type UpdatePullRequestRequest struct {
	State string `json:"state" binding:"required,oneof=open closed"`
}

type CommentRequest struct {
	Body string `json:"body" binding:"required,min=1,max=65536"`
}
