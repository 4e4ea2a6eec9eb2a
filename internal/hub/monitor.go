package hub

import (
	"github.com/opuofficial/chat-application-server/internal/model"
)

// MonitorService gathers hub statistics for the monitoring endpoint.
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats reports who is connected right now, straight from the registry.
func (ms *MonitorService) GetStats() model.MonitorResponse {
	handles := ms.hub.registry.Snapshot()

	clients := make([]model.ConnectedClient, 0, len(handles))
	for _, h := range handles {
		clients = append(clients, model.ConnectedClient{
			UserID:   h.UserID(),
			ClientID: h.ID(),
		})
	}

	status := "healthy"
	if len(clients) == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:         status,
		TotalConnected: len(clients),
		Clients:        clients,
	}
}
