package dto

// OAuthCallbackRequest carries the token handed back by the OAuth redirect
type OAuthCallbackRequest struct {
	Token string `json:"token" form:"token" binding:"required"`
}
