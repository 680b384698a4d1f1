package flights

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

const dateLayout = "2006-01-02"

type FlightUseCase interface {
	Search(ctx context.Context, input SearchInput) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	FareHistory(ctx context.Context, flightID int64) ([]domain.FareRecord, error)
}

// FlightCache stores search results under a key derived from the filter.
// GetFlights returns a nil slice on a miss along with the cache generation it
// read; SetFlights must be given that same generation so a result loaded
// before an invalidation is never served after it.
type FlightCache interface {
	GetFlights(ctx context.Context, key string) ([]domain.Flight, int64, error)
	SetFlights(ctx context.Context, key string, gen int64, flights []domain.Flight) error
}

type SearchInput struct {
	Origin      string
	Destination string
	Date        string
	Sort        string
	Order       string
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
}

func NewFlightService(repo repository.FlightRepository, cache FlightCache) *FlightService {
	return &FlightService{repo: repo, cache: cache}
}

// ParseSearch validates raw query values and turns them into a repository filter.
func ParseSearch(input SearchInput) (domain.FlightFilter, error) {
	filter := domain.FlightFilter{
		Origin:      strings.ToUpper(strings.TrimSpace(input.Origin)),
		Destination: strings.ToUpper(strings.TrimSpace(input.Destination)),
		Sort:        domain.SortByDeparture,
	}

	if d := strings.TrimSpace(input.Date); d != "" {
		date, err := time.Parse(dateLayout, d)
		if err != nil {
			return filter, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", domain.ErrValidation, input.Date)
		}
		filter.Date = date
	}

	switch sort := domain.SortKey(strings.ToLower(strings.TrimSpace(input.Sort))); sort {
	case "":
	case domain.SortByDeparture, domain.SortByPrice, domain.SortByDuration:
		filter.Sort = sort
	default:
		return filter, fmt.Errorf("%w: sort must be one of price, duration, departure", domain.ErrValidation)
	}

	switch strings.ToLower(strings.TrimSpace(input.Order)) {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		return filter, fmt.Errorf("%w: order must be asc or desc", domain.ErrValidation)
	}

	return filter, nil
}

func cacheKey(f domain.FlightFilter) string {
	date := ""
	if f.HasDate() {
		date = f.Date.Format(dateLayout)
	}
	order := "asc"
	if f.Descending {
		order = "desc"
	}
	return strings.Join([]string{f.Origin, f.Destination, date, string(f.Sort), order}, "|")
}

func (s *FlightService) Search(ctx context.Context, input SearchInput) ([]domain.Flight, error) {
	filter, err := ParseSearch(input)
	if err != nil {
		return nil, err
	}

	key := cacheKey(filter)
	cacheable := false
	var gen int64
	if s.cache != nil {
		cached, g, err := s.cache.GetFlights(ctx, key)
		switch {
		case err != nil:
			log.Printf("flights cache read failed: %v", err)
		case cached != nil:
			return cached, nil
		default:
			cacheable, gen = true, g
		}
	}

	flights, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.cache.SetFlights(ctx, key, gen, flights); err != nil {
			log.Printf("flights cache write failed: %v", err)
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) FareHistory(ctx context.Context, flightID int64) ([]domain.FareRecord, error) {
	return s.repo.FareHistory(ctx, flightID)
}

var _ FlightUseCase = (*FlightService)(nil)
