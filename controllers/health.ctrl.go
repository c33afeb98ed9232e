package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type WatcherState interface {
	State() string
}

type HealthController struct {
	watcher WatcherState
}

func NewHealthController(watcher WatcherState) *HealthController {
	return &HealthController{watcher: watcher}
}

type HealthResponse struct {
	Result  string `json:"result"`
	Watcher string `json:"watcher,omitempty"`
}

// Health godoc
// @Summary      Check system health
// @Description  Check system health
// @Produce      json
// @Tags         Health
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (controller *HealthController) Check(c echo.Context) error {
	response := &HealthResponse{Result: "OK"}
	if controller.watcher != nil {
		response.Watcher = controller.watcher.State()
	}
	return c.JSON(http.StatusOK, response)
}
