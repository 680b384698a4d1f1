package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type passengerRequest struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type createBookingRequest struct {
	FlightID      int64              `json:"flight_id"`
	Seats         int                `json:"seats"`
	Passengers    []passengerRequest `json:"passengers"`
	Email         string             `json:"email"`
	PaymentMethod string             `json:"payment_method"`
}

type createBookingResponse struct {
	PNR        string  `json:"pnr"`
	Status     string  `json:"status"`
	Seats      int     `json:"seats"`
	TotalPrice float64 `json:"total_price"`
	Currency   string  `json:"currency"`
}

type cancelBookingResponse struct {
	PNR    string `json:"pnr"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

type bookingSummaryResponse struct {
	PNR           string    `json:"pnr"`
	FlightID      int64     `json:"flight_id"`
	FlightNumber  string    `json:"flight_number"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	Seats         int       `json:"seats"`
	TotalPrice    float64   `json:"total_price"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type paymentResponse struct {
	Amount               float64   `json:"amount"`
	Currency             string    `json:"currency"`
	Method               string    `json:"method"`
	TransactionReference string    `json:"transaction_reference"`
	Status               string    `json:"status"`
	PaidAt               time.Time `json:"paid_at"`
}

type receiptResponse struct {
	PNR         string             `json:"pnr"`
	Status      string             `json:"status"`
	Email       string             `json:"email,omitempty"`
	Seats       int                `json:"seats"`
	TotalPrice  float64            `json:"total_price"`
	Currency    string             `json:"currency"`
	CreatedAt   time.Time          `json:"created_at"`
	CancelledAt *time.Time         `json:"cancelled_at,omitempty"`
	Flight      flightResponse     `json:"flight"`
	Passengers  []domain.Passenger `json:"passengers"`
	Payment     *paymentResponse   `json:"payment,omitempty"`
	IssuedAt    time.Time          `json:"issued_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the booking routes. Writes get the extra middleware, which
// is where the rate limiter goes.
func (h *BookingHandler) Register(router *gin.RouterGroup, writeMiddleware ...gin.HandlerFunc) {
	router.POST("", chain(writeMiddleware, h.create)...)
	router.POST("/:pnr/cancel", chain(writeMiddleware, h.cancel)...)
	router.GET("/history", h.history)
	router.GET("/:pnr/receipt", h.receipt)
	router.GET("/:pnr/receipt/pdf", h.receiptPDF)
}

func chain(middleware []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(middleware)+1)
	handlers = append(handlers, middleware...)
	return append(handlers, handler)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeDetail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	input := booking.CreateBookingInput{
		FlightID:      req.FlightID,
		Seats:         req.Seats,
		Email:         req.Email,
		PaymentMethod: req.PaymentMethod,
	}
	for _, p := range req.Passengers {
		input.Passengers = append(input.Passengers, booking.PassengerInput{Name: p.Name, Age: p.Age})
	}

	created, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createBookingResponse{
		PNR:        created.PNR,
		Status:     string(created.Status),
		Seats:      created.Seats,
		TotalPrice: toMajor(created.TotalPriceCents),
		Currency:   created.Currency,
	})
}

func (h *BookingHandler) cancel(c *gin.Context) {
	cancelled, err := h.service.CancelBooking(c.Request.Context(), c.Param("pnr"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, cancelBookingResponse{
		PNR:    cancelled.PNR,
		Status: string(cancelled.Status),
		Detail: fmt.Sprintf("booking %s cancelled, %d seats released", cancelled.PNR, cancelled.Seats),
	})
}

func (h *BookingHandler) history(c *gin.Context) {
	rows, err := h.service.History(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]bookingSummaryResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, bookingSummaryResponse{
			PNR:           r.PNR,
			FlightID:      r.FlightID,
			FlightNumber:  r.FlightNumber,
			Origin:        r.Origin,
			Destination:   r.Destination,
			DepartureTime: r.DepartureTime,
			Seats:         r.Seats,
			TotalPrice:    toMajor(r.TotalPriceCents),
			Currency:      r.Currency,
			Status:        string(r.Status),
			CreatedAt:     r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) receipt(c *gin.Context) {
	r, err := h.service.Receipt(c.Request.Context(), c.Param("pnr"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := receiptResponse{
		PNR:         r.Booking.PNR,
		Status:      string(r.Booking.Status),
		Email:       r.Booking.Email,
		Seats:       r.Booking.Seats,
		TotalPrice:  toMajor(r.Booking.TotalPriceCents),
		Currency:    r.Booking.Currency,
		CreatedAt:   r.Booking.CreatedAt,
		CancelledAt: r.Booking.CancelledAt,
		Flight:      newFlightResponse(r.Flight),
		Passengers:  r.Passengers,
		IssuedAt:    r.IssuedAt,
	}
	if resp.Passengers == nil {
		resp.Passengers = []domain.Passenger{}
	}
	if p := r.Payment; p != nil {
		resp.Payment = &paymentResponse{
			Amount:               toMajor(p.AmountCents),
			Currency:             p.Currency,
			Method:               p.Method,
			TransactionReference: p.TransactionReference,
			Status:               string(p.Status),
			PaidAt:               p.PaidAt,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) receiptPDF(c *gin.Context) {
	pnr := strings.ToUpper(c.Param("pnr"))
	data, err := h.service.ReceiptPDF(c.Request.Context(), pnr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, pnr))
	c.Data(http.StatusOK, "application/pdf", data)
}
