package types

import "fmt"

// FacebookUser is the Graph API `/me?fields=name,picture` response.
type FacebookUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL    string `json:"url"`
			Width  int    `json:"width,omitempty"`
			Height int    `json:"height,omitempty"`
		} `json:"data"`
	} `json:"picture"`
}

// GraphError is the `error` member of a failed Graph API response.
type GraphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

type GraphErrorResponse struct {
	Error *GraphError `json:"error"`
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph api: %s (%s, code %d)", e.Message, e.Type, e.Code)
}
