package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

type airportResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
	City string `json:"city"`
}

type flightResponse struct {
	ID              int64           `json:"id"`
	FlightNumber    string          `json:"flight_number"`
	Airline         string          `json:"airline"`
	AirlineCode     string          `json:"airline_code"`
	Origin          airportResponse `json:"origin"`
	Destination     airportResponse `json:"destination"`
	DepartureTime   time.Time       `json:"departure_time"`
	ArrivalTime     time.Time       `json:"arrival_time"`
	DurationMinutes int             `json:"duration_minutes"`
	Price           float64         `json:"price"`
	BasePrice       float64         `json:"base_price"`
	Currency        string          `json:"currency"`
	TotalSeats      int             `json:"total_seats"`
	AvailableSeats  int             `json:"available_seats"`
	Refundable      bool            `json:"refundable"`
}

type fareResponse struct {
	Price      float64   `json:"price"`
	Reason     string    `json:"reason"`
	RecordedAt time.Time `json:"recorded_at"`
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.search)
	router.GET("/:id", h.get)
	router.GET("/:id/fares", h.fares)
}

func toMajor(cents int64) float64 {
	return float64(cents) / 100
}

func newAirportResponse(a domain.Airport) airportResponse {
	return airportResponse{Code: a.IATA, Name: a.Name, City: a.City}
}

func newFlightResponse(f domain.Flight) flightResponse {
	return flightResponse{
		ID:              f.ID,
		FlightNumber:    f.FlightNumber,
		Airline:         f.Airline.Name,
		AirlineCode:     f.Airline.Code,
		Origin:          newAirportResponse(f.Origin),
		Destination:     newAirportResponse(f.Destination),
		DepartureTime:   f.DepartureTime,
		ArrivalTime:     f.ArrivalTime,
		DurationMinutes: int(f.Duration().Minutes()),
		Price:           toMajor(f.DynamicPriceCents),
		BasePrice:       toMajor(f.BasePriceCents),
		Currency:        f.Currency,
		TotalSeats:      f.TotalSeats,
		AvailableSeats:  f.AvailableSeats,
		Refundable:      f.Refundable,
	}
}

func (h *FlightHandler) search(c *gin.Context) {
	result, err := h.service.Search(c.Request.Context(), flights.SearchInput{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
		Date:        c.Query("date"),
		Sort:        c.Query("sort"),
		Order:       c.Query("order"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]flightResponse, 0, len(result))
	for _, f := range result {
		resp = append(resp, newFlightResponse(f))
	}
	c.JSON(http.StatusOK, resp)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFlightResponse(*flight))
}

func (h *FlightHandler) fares(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	records, err := h.service.FareHistory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]fareResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, fareResponse{Price: toMajor(r.PriceCents), Reason: r.Reason, RecordedAt: r.RecordedAt})
	}
	c.JSON(http.StatusOK, resp)
}
