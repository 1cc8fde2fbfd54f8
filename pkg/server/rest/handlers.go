package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ridenav/rideengine/pkg/datastructure"
	"github.com/ridenav/rideengine/pkg/guidance"
	"github.com/ridenav/rideengine/pkg/location"
	"github.com/ridenav/rideengine/pkg/server"
	"github.com/ridenav/rideengine/pkg/server/rest/service"
	"github.com/ridenav/rideengine/pkg/tracking"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

type NavigationService interface {
	LoadRoute(fileBytes []byte) (datastructure.Route, error)
	StartTracking(lastKnown []location.Fix) tracking.DisplayState
	StopTracking()
	PushFix(fix location.Fix) (tracking.DisplayState, bool)
	ExitNavigation() tracking.DisplayState
	Recenter() tracking.DisplayState
	UserGesture() tracking.DisplayState
	State() service.State
}

type NavigationHandler struct {
	svc NavigationService
}

func NavigationRouter(r *chi.Mux, svc NavigationService) {
	handler := &NavigationHandler{svc}

	r.Group(func(r chi.Router) {
		r.Route("/api/navigation", func(r chi.Router) {
			r.Post("/route", handler.LoadRoute)
			r.Post("/location", handler.PushFix)
			r.Get("/state", handler.State)
			r.Post("/tracking/start", handler.StartTracking)
			r.Post("/tracking/stop", handler.StopTracking)
			r.Post("/exit-navigation", handler.ExitNavigation)
			r.Post("/recenter", handler.Recenter)
			r.Post("/gesture", handler.UserGesture)
		})
	})
}

// RoutePointResponse is one named point of the loaded route.
type RoutePointResponse struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name,omitempty"`
}

// RouteResponse summarizes the loaded route for the renderer.
type RouteResponse struct {
	TrackPointCount int                  `json:"track_point_count"`
	Path            string               `json:"path"` // encoded polyline
	StartPoint      *RoutePointResponse  `json:"start_point,omitempty"`
	EndPoint        *RoutePointResponse  `json:"end_point,omitempty"`
	Stops           []RoutePointResponse `json:"stops"`
}

func renderRoutePoint(p *datastructure.RoutePoint) *RoutePointResponse {
	if p == nil {
		return nil
	}
	return &RoutePointResponse{Lat: p.Lat, Lon: p.Lon, Name: p.Name}
}

func RenderRouteResponse(route datastructure.Route) *RouteResponse {
	stops := make([]RoutePointResponse, 0, len(route.Stops))
	for i := range route.Stops {
		stops = append(stops, *renderRoutePoint(&route.Stops[i]))
	}
	return &RouteResponse{
		TrackPointCount: len(route.TrackPoints),
		Path:            datastructure.RenderPath(route.TrackCoordinates()),
		StartPoint:      renderRoutePoint(route.StartPoint),
		EndPoint:        renderRoutePoint(route.EndPoint),
		Stops:           stops,
	}
}

// LoadRoute reads a gpx file from the request body and makes it the active
// route.
func (h *NavigationHandler) LoadRoute(w http.ResponseWriter, r *http.Request) {
	fileBytes, err := io.ReadAll(r.Body)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if len(fileBytes) == 0 {
		render.Render(w, r, ErrInvalidRequest(errors.New("empty route file")))
		return
	}

	route, err := h.svc.LoadRoute(fileBytes)
	if err != nil {
		render.Render(w, r, ErrRend(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderRouteResponse(route))
}

// FixRequest is one raw location update.
type FixRequest struct {
	// range-only: zero is a legitimate coordinate on the equator/meridian
	Lat           float64  `json:"lat" validate:"gte=-90,lte=90"`
	Lon           float64  `json:"lon" validate:"gte=-180,lte=180"`
	Accuracy      *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	Bearing       *float32 `json:"bearing,omitempty" validate:"omitempty,gte=0,lt=360"`
	Provider      string   `json:"provider" validate:"omitempty,oneof=gps network other"`
	ElapsedMillis *int64   `json:"elapsed_ms,omitempty"`
}

func (s *FixRequest) Bind(r *http.Request) error {
	return nil
}

func (s *FixRequest) toFix() location.Fix {
	fix := location.Fix{
		Lat: s.Lat,
		Lon: s.Lon,
	}
	if s.Accuracy != nil {
		fix.Accuracy = *s.Accuracy
		fix.HasAccuracy = true
	}
	if s.Bearing != nil {
		fix.Bearing = *s.Bearing
		fix.HasBearing = true
	}
	if s.ElapsedMillis != nil {
		fix.ElapsedMillis = *s.ElapsedMillis
		fix.HasElapsed = true
	}
	switch s.Provider {
	case "gps":
		fix.Provider = location.ProviderGPS
	case "network":
		fix.Provider = location.ProviderNetwork
	default:
		fix.Provider = location.ProviderOther
	}
	return fix
}

// DisplayStateResponse is the camera/marker state after an update or command.
type DisplayStateResponse struct {
	Accepted   bool    `json:"accepted"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Bearing    float64 `json:"bearing"`
	Mode       string  `json:"mode"`
	AutoFollow bool    `json:"auto_follow"`
	Recenter   bool    `json:"recenter"`
	Zoom       float64 `json:"zoom,omitempty"`
}

func RenderDisplayState(state tracking.DisplayState, accepted bool) *DisplayStateResponse {
	return &DisplayStateResponse{
		Accepted:   accepted,
		Lat:        state.Position.Lat,
		Lon:        state.Position.Lon,
		Bearing:    state.Bearing,
		Mode:       state.Mode.String(),
		AutoFollow: state.AutoFollow,
		Recenter:   state.Recenter,
		Zoom:       state.Zoom,
	}
}

func (h *NavigationHandler) PushFix(w http.ResponseWriter, r *http.Request) {
	data := &FixRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	state, accepted := h.svc.PushFix(data.toFix())

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderDisplayState(state, accepted))
}

// StartTrackingRequest optionally carries the platform's cached last-known
// fixes for position bootstrap.
type StartTrackingRequest struct {
	LastKnown []FixRequest `json:"last_known,omitempty" validate:"omitempty,dive"`
}

func (s *StartTrackingRequest) Bind(r *http.Request) error {
	return nil
}

func (h *NavigationHandler) StartTracking(w http.ResponseWriter, r *http.Request) {
	data := &StartTrackingRequest{}
	if r.ContentLength > 0 {
		if err := render.Bind(r, data); err != nil {
			render.Render(w, r, ErrInvalidRequest(err))
			return
		}
	}

	lastKnown := make([]location.Fix, 0, len(data.LastKnown))
	for i := range data.LastKnown {
		lastKnown = append(lastKnown, data.LastKnown[i].toFix())
	}

	state := h.svc.StartTracking(lastKnown)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderDisplayState(state, true))
}

func (h *NavigationHandler) StopTracking(w http.ResponseWriter, r *http.Request) {
	h.svc.StopTracking()
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "stopped"})
}

func (h *NavigationHandler) ExitNavigation(w http.ResponseWriter, r *http.Request) {
	state := h.svc.ExitNavigation()
	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderDisplayState(state, true))
}

func (h *NavigationHandler) Recenter(w http.ResponseWriter, r *http.Request) {
	state := h.svc.Recenter()
	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderDisplayState(state, true))
}

func (h *NavigationHandler) UserGesture(w http.ResponseWriter, r *http.Request) {
	state := h.svc.UserGesture()
	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderDisplayState(state, true))
}

// InstructionResponse is one turn instruction of the matched route.
type InstructionResponse struct {
	Text     string  `json:"text"`
	Sign     int     `json:"sign"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// StateResponse is the full reactive view for the renderer.
type StateResponse struct {
	HasRoute       bool                       `json:"has_route"`
	Route          *RouteResponse             `json:"route,omitempty"`
	MatchedPath    string                     `json:"matched_path,omitempty"` // encoded polyline
	Instructions   []InstructionResponse      `json:"instructions,omitempty"`
	MatchedSegment int                        `json:"matched_segment"`
	Tracking       bool                       `json:"tracking"`
	OnRoute        bool                       `json:"on_route"`
	Display        *DisplayStateResponse      `json:"display,omitempty"`
	RouteLine      []datastructure.Coordinate `json:"route_line,omitempty"`
}

func RenderStateResponse(state service.State) *StateResponse {
	resp := &StateResponse{
		HasRoute:       state.Route != nil,
		MatchedSegment: state.MatchedSegment,
		Tracking:       state.Tracking,
		OnRoute:        state.Session.OnRoute,
	}

	if state.Route != nil {
		resp.Route = RenderRouteResponse(*state.Route)
	}

	if state.Matched != nil {
		resp.MatchedPath = datastructure.RenderPath(state.Matched.SnappedPoints)
		resp.Instructions = make([]InstructionResponse, 0, len(state.Matched.Instructions))
		for _, ins := range state.Matched.Instructions {
			resp.Instructions = append(resp.Instructions, InstructionResponse{
				Text:     guidance.DescribeInstruction(ins),
				Sign:     guidance.TurnSign(ins.Maneuver, ins.Modifier),
				Distance: ins.Distance,
				Duration: ins.Duration,
				Lat:      ins.Point.Lat,
				Lon:      ins.Point.Lon,
			})
		}
	}

	if state.Session.HasPosition {
		resp.Display = RenderDisplayState(state.Display, true)
	}
	if state.Session.HasRouteLine {
		resp.RouteLine = state.Session.RouteLine[:]
	}

	return resp
}

func (h *NavigationHandler) State(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderStateResponse(h.svc.State()))
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

// ErrRend maps a service error onto an http error response via its code.
func ErrRend(err error) render.Renderer {
	switch server.CodeOf(err) {
	case server.ErrBadParamInput:
		return ErrInvalidRequest(err)
	case server.ErrNotFound:
		return &ErrResponse{
			Err:            err,
			HTTPStatusCode: 404,
			StatusText:     "Not found.",
			ErrorText:      err.Error(),
		}
	default:
		return ErrInternalServerErrorRend(errors.New("internal server error"))
	}
}

// ErrResponse is the error body for every failure path.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       int64    `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message, for debugging
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs := err.(validator.ValidationErrors)
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf(e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}

func ErrInternalServerErrorRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 500,
		StatusText:     "Internal server error.",
		ErrorText:      err.Error(),
	}
}
