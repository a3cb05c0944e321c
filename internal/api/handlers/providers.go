package handlers

import (
	"net/http"
	"time"

	"socialprobe/internal/api/middleware"
	"socialprobe/internal/provider"

	"github.com/labstack/echo/v4"
)

// providerView is one row of the provider table as exposed over HTTP
type providerView struct {
	provider.Descriptor
	Configured bool   `json:"configured"`
	InChain    bool   `json:"in_chain"`
	Circuit    string `json:"circuit"`
}

// ProvidersHandler returns the provider table, the default chain order and
// the limiter statistics. guard may be nil.
func ProvidersHandler(registry *provider.Registry, guard *provider.Guard) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := middleware.RequestID(c)

		order := registry.Order()
		inChain := make(map[string]bool, len(order))
		for _, id := range order {
			inChain[id] = true
		}

		circuits := make(map[string]string)
		var stats []provider.ProviderStats
		if guard != nil {
			stats = guard.Stats()
			for _, st := range stats {
				circuits[st.Provider] = st.CircuitState
			}
		}

		descriptors := registry.All()
		views := make([]providerView, 0, len(descriptors))
		for _, d := range descriptors {
			view := providerView{
				Descriptor: d,
				Configured: d.HasCredentials(),
				InChain:    inChain[d.ID],
				Circuit:    provider.CircuitClosed.String(),
			}
			if state, ok := circuits[d.ID]; ok {
				view.Circuit = state
			}
			views = append(views, view)
		}

		response := map[string]interface{}{
			"success":    true,
			"order":      order,
			"providers":  views,
			"request_id": requestID,
			"timestamp":  time.Now(),
		}
		if guard != nil {
			response["stats"] = stats
		}

		return c.JSON(http.StatusOK, response)
	}
}
