package kitchen

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/appetiteclub/kds/internal/logger"
	"github.com/appetiteclub/kds/pkg/enums/station"
	"github.com/google/uuid"
)

const (
	DefaultArrivalInterval = 30 * time.Second
	DefaultArrivalChance   = 0.3
)

type demoDish struct {
	name    string
	station station.Station
}

var demoMenu = []demoDish{
	{name: "Burger", station: station.Stations.Grill},
	{name: "Fries", station: station.Stations.Fryer},
	{name: "Pasta Carbonara", station: station.Stations.Pasta},
	{name: "Caesar Salad", station: station.Stations.Cold},
	{name: "Pizza Margherita", station: station.Stations.Other},
	{name: "Tiramisu", station: station.Stations.Dessert},
	{name: "Lemonade", station: station.Stations.Bar},
}

// Simulator places a random order on each tick with a fixed chance,
// standing in for a front of house during demos.
type Simulator struct {
	service  TicketService
	interval time.Duration
	chance   float64
	ticks    TickSource
	logger   logger.Logger

	mu     sync.Mutex
	rng    *rand.Rand
	cancel context.CancelFunc
	done   chan struct{}
}

type SimulatorOptions struct {
	Interval time.Duration
	Chance   float64
	Seed     uint64
	Ticks    TickSource
}

func NewSimulator(service TicketService, opts SimulatorOptions, log logger.Logger) *Simulator {
	if log == nil {
		log = logger.NewNoop()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultArrivalInterval
	}
	if opts.Chance <= 0 {
		opts.Chance = DefaultArrivalChance
	}
	if opts.Ticks == nil {
		opts.Ticks = NewTimeTicker
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Simulator{
		service:  service,
		interval: opts.Interval,
		chance:   opts.Chance,
		ticks:    opts.Ticks,
		rng:      rand.New(rand.NewPCG(seed, seed>>1)),
		logger:   log.With("component", "simulator"),
	}
}

func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	ticker := s.ticks(s.interval)

	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				s.Arrive()
			}
		}
	}()

	s.logger.Info("arrival simulator started", "interval", s.interval.String(), "chance", s.chance)
	return nil
}

func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("arrival simulator stopped")
}

// Arrive rolls once and places an order on success. It reports whether a
// ticket was opened.
func (s *Simulator) Arrive() bool {
	s.mu.Lock()
	if s.rng.Float64() >= s.chance {
		s.mu.Unlock()
		return false
	}
	label := Label{TableNumber: s.rng.IntN(10) + 1}
	dish := demoMenu[s.rng.IntN(len(demoMenu))]
	item := LineItem{
		Name:               dish.name,
		Quantity:           s.rng.IntN(3) + 1,
		PreparationMinutes: float64(s.rng.IntN(20) + 5),
		Station:            dish.station.Code(),
	}
	s.mu.Unlock()

	id, err := s.service.PlaceOrder(label, []LineItem{item})
	if err != nil {
		if errors.Is(err, ErrQueueFull) {
			s.logger.Debug("queue full, skipping arrival", "label", label.String())
			return false
		}
		s.logger.Error("cannot place simulated order", "error", err)
		return false
	}

	s.logger.Info("simulated order placed", "ticket_id", id, "label", label.String(), "dish", item.Name)
	return true
}

// DemoSeeds returns the sample tickets a fresh demo board starts with,
// backdated relative to now.
func DemoSeeds(now time.Time) []Ticket {
	return []Ticket{
		{
			ID:        uuid.New(),
			Label:     Label{TableNumber: 5},
			CreatedAt: now.Add(-3 * time.Minute),
			Items: []LineItem{
				{Name: "Burger", Quantity: 2, PreparationMinutes: 15, Station: station.Stations.Grill.Code()},
				{Name: "Fries", Quantity: 1, PreparationMinutes: 8, Station: station.Stations.Fryer.Code()},
			},
		},
		{
			ID:        uuid.New(),
			Label:     Label{TableNumber: 3},
			CreatedAt: now.Add(-12 * time.Minute),
			Items: []LineItem{
				{Name: "Pasta Carbonara", Quantity: 1, PreparationMinutes: 20, Station: station.Stations.Pasta.Code()},
				{Name: "Caesar Salad", Quantity: 1, PreparationMinutes: 5, Station: station.Stations.Cold.Code()},
			},
		},
		{
			ID:        uuid.New(),
			Label:     Label{CustomerName: "María Rodríguez"},
			CreatedAt: now,
			Items: []LineItem{
				{Name: "Pizza Margherita", Quantity: 1, PreparationMinutes: 25, Station: station.Stations.Other.Code()},
			},
		},
	}
}

// ApplyDemoSeeds opens the demo tickets. Tickets already present are skipped.
func ApplyDemoSeeds(service TicketService, now time.Time, log logger.Logger) error {
	if log == nil {
		log = logger.NewNoop()
	}

	var applied int
	for _, t := range DemoSeeds(now) {
		if _, err := service.Add(t); err != nil {
			if errors.Is(err, ErrDuplicateID) {
				continue
			}
			return err
		}
		applied++
	}

	log.Info("demo tickets seeded", "count", applied)
	return nil
}
