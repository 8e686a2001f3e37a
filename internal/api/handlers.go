package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"beachbookings/internal/domain"
	"beachbookings/internal/export"
	"beachbookings/internal/models"
	"beachbookings/internal/service"
	"beachbookings/internal/visibility"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type bookingListResponse struct {
	Route            string                `json:"route"`
	AuthStatus       AuthStatus            `json:"auth_status"`
	Bookings         []*domain.BookingView `json:"bookings"`
	Empty            bool                  `json:"empty"`
	PollAfterSeconds int                   `json:"poll_after_seconds"`
}

type kickRequest struct {
	UserID string `json:"user_id"`
}

type guestRequest struct {
	Name string `json:"name"`
}

func parseRoute(r *http.Request) (visibility.Route, error) {
	raw := r.URL.Query().Get("route")
	route, ok := visibility.RouteFromPath(raw)
	if !ok {
		return route, fmt.Errorf("%w: unknown route %q", service.ErrInvalidInput, raw)
	}
	return route, nil
}

// requireUser writes 401 when the caller is not a resolved user.
func requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := userFrom(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, service.ErrUnauthenticated.Error())
		return nil, false
	}
	return user, true
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	route, err := parseRoute(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	viewer := service.ViewerFor(userFrom(r.Context()))
	views, err := s.deps.Bookings.ListBookings(r.Context(), viewer, route)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.setPollHeader(w)
	writeJSON(w, http.StatusOK, bookingListResponse{
		Route:            route.String(),
		AuthStatus:       authStatusFrom(r.Context()),
		Bookings:         views,
		Empty:            len(views) == 0,
		PollAfterSeconds: s.pollSeconds(),
	})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	viewer := service.ViewerFor(userFrom(r.Context()))
	view, err := s.deps.Bookings.GetBooking(r.Context(), viewer, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.setPollHeader(w)
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in domain.BookingInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	booking, err := s.deps.Bookings.CreateBooking(r.Context(), user, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in domain.BookingInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	booking, err := s.deps.Bookings.UpdateBooking(r.Context(), user, r.PathValue("id"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.deps.Bookings.DeleteBooking(r.Context(), user, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleJoinBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	booking, err := s.deps.Bookings.JoinBooking(r.Context(), user, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleLeaveBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	booking, err := s.deps.Bookings.LeaveBooking(r.Context(), user, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleKickPlayer(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body kickRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(body.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	booking, err := s.deps.Bookings.KickPlayer(r.Context(), user, r.PathValue("id"), strings.TrimSpace(body.UserID))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleAddGuest(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body guestRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	guest, err := s.deps.Bookings.AddGuest(r.Context(), user, r.PathValue("id"), body.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, guest)
}

func (s *HTTPServer) handleRemoveGuest(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.deps.Bookings.RemoveGuest(r.Context(), user, r.PathValue("id"), r.PathValue("guestID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportBookings writes the same list the route shows as an xlsx download.
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	route, err := parseRoute(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	viewer := service.ViewerFor(userFrom(ctx))
	views, err := s.deps.Bookings.ListBookings(ctx, viewer, route)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	names, err := s.deps.Users.DisplayNames(ctx)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	facilities, err := s.deps.Facilities.GetFacilities(ctx)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	facilityNames := make(map[string]string, len(facilities))
	for _, f := range facilities {
		facilityNames[f.ID] = f.Name
	}

	bookings := make([]*models.Booking, 0, len(views))
	for _, v := range views {
		bookings = append(bookings, v.Booking)
	}

	var buf bytes.Buffer
	title := fmt.Sprintf("Bookings %s", route.String())
	if err := s.deps.Exporter.Write(&buf, title, bookings, names, facilityNames); err != nil {
		s.writeServiceError(w, r, fmt.Errorf("failed to export bookings: %w", err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(route.String(), s.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
