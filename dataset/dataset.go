package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidObservation = errors.New("invalid observation")

// FeatureNames lists the model inputs in the order Features emits them.
var FeatureNames = []string{"Year", "Hand"}

// Observation is one submitted car: model year, hand (mileage) and price.
type Observation struct {
	Year  int             `json:"year"`
	Hand  int             `json:"hand"`
	Price decimal.Decimal `json:"price"`
}

func NewObservation(year, hand int, price decimal.Decimal) Observation {
	return Observation{Year: year, Hand: hand, Price: price}
}

// ParseObservation builds an Observation from raw form values. All three
// fields are required; nothing is returned unless all of them parse.
func ParseObservation(year, hand, price string) (Observation, error) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return Observation{}, fmt.Errorf("%w: year %q: %v", ErrInvalidObservation, year, err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hand))
	if err != nil {
		return Observation{}, fmt.Errorf("%w: hand %q: %v", ErrInvalidObservation, hand, err)
	}
	p, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return Observation{}, fmt.Errorf("%w: price %q: %v", ErrInvalidObservation, price, err)
	}
	if math.IsInf(p.InexactFloat64(), 0) {
		return Observation{}, fmt.Errorf("%w: price %q out of range", ErrInvalidObservation, price)
	}
	return NewObservation(y, h, p), nil
}

// Dataset is an append-only, ordered collection of observations.
// The zero value is an empty dataset.
type Dataset struct {
	rows []Observation
}

func New(rows ...Observation) Dataset {
	return Dataset{rows: append([]Observation(nil), rows...)}
}

func (d Dataset) Len() int {
	return len(d.rows)
}

// Rows returns a copy of the observations in insertion order.
func (d Dataset) Rows() []Observation {
	return append([]Observation(nil), d.rows...)
}

// Append returns a new dataset with obs added at the end. d is left as is.
func (d Dataset) Append(obs Observation) Dataset {
	rows := make([]Observation, len(d.rows), len(d.rows)+1)
	copy(rows, d.rows)
	return Dataset{rows: append(rows, obs)}
}

// Features returns one {Year, Hand} vector per row.
func (d Dataset) Features() [][]float64 {
	features := make([][]float64, len(d.rows))
	for i, row := range d.rows {
		features[i] = []float64{float64(row.Year), float64(row.Hand)}
	}
	return features
}

// Targets returns the prices as float64 in row order.
func (d Dataset) Targets() []float64 {
	targets := make([]float64, len(d.rows))
	for i, row := range d.rows {
		targets[i] = row.Price.InexactFloat64()
	}
	return targets
}

// DistinctYears returns the years present in the dataset, ascending.
func (d Dataset) DistinctYears() []int {
	seen := make(map[int]struct{}, len(d.rows))
	years := make([]int, 0, len(d.rows))
	for _, row := range d.rows {
		if _, ok := seen[row.Year]; ok {
			continue
		}
		seen[row.Year] = struct{}{}
		years = append(years, row.Year)
	}
	sort.Ints(years)
	return years
}

// MeanHand is the arithmetic mean of Hand, or 0 for an empty dataset.
func (d Dataset) MeanHand() float64 {
	if len(d.rows) == 0 {
		return 0
	}
	var sum float64
	for _, row := range d.rows {
		sum += float64(row.Hand)
	}
	return sum / float64(len(d.rows))
}
