package model

// MonitorResponse is the payload of the monitoring endpoint.
type MonitorResponse struct {
	Status         string            `json:"status"`
	TotalConnected int               `json:"totalConnected"`
	Clients        []ConnectedClient `json:"clients"`
}

// ConnectedClient identifies one live connection.
type ConnectedClient struct {
	UserID   string `json:"userId"`
	ClientID string `json:"clientId"`
}
