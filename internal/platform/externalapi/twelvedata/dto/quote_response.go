// Package dto defines data transfer objects for the Twelve Data API responses.
package dto

// QuoteResponse represents the JSON response from the Twelve Data quote endpoint.
// Error responses carry only Code, Message and Status.
type QuoteResponse struct {
	Status   string `json:"status,omitempty"`
	Code     int    `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
	Datetime string `json:"datetime"`
	Close    string `json:"close"`
}
