package handlers

import (
	"net/http"
	"time"

	"github.com/mineradorx/relay/internal/adapter/gateway"
	"github.com/mineradorx/relay/pkg/format"
)

type ServicesStatusResponse struct {
	Timestamp      time.Time               `json:"timestamp"`
	Summary        string                  `json:"summary"`
	Services       []gateway.ServiceStatus `json:"services"`
	TotalCount     int                     `json:"total_count"`
	AvailableCount int                     `json:"available_count"`
}

func (a *Application) servicesStatusHandler(w http.ResponseWriter, r *http.Request) {
	statuses := a.dispatcher.Statuses()

	available := 0
	for _, st := range statuses {
		if st.Available {
			available++
		}
	}

	a.writeJSON(w, http.StatusOK, ServicesStatusResponse{
		Timestamp:      time.Now(),
		Services:       statuses,
		TotalCount:     len(statuses),
		AvailableCount: available,
		Summary:        format.ServicesUp(available, len(statuses)),
	})
}
