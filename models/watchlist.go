package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDuplicateSymbol   = errors.New("symbol already in watchlist")
	ErrWatchlistNotFound = errors.New("watchlist not found")
	ErrInvalidName       = errors.New("watchlist name must not be empty")
)

// Watchlist is a named, ordered set of unique ticker symbols
type Watchlist struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Symbols   []string  `json:"stocks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWatchlist creates an empty watchlist
func NewWatchlist(name string) (*Watchlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	now := time.Now()
	return &Watchlist{
		ID:        uuid.New(),
		Name:      name,
		Symbols:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Rename changes the display name
func (w *Watchlist) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	w.Name = name
	w.UpdatedAt = time.Now()
	return nil
}

// Contains reports whether symbol is already tracked
func (w *Watchlist) Contains(symbol string) bool {
	symbol = NormalizeSymbol(symbol)
	for _, s := range w.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// Add appends symbol, keeping the list free of duplicates
func (w *Watchlist) Add(symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if !ValidSymbol(symbol) {
		return fmt.Errorf("invalid symbol %q", symbol)
	}
	if w.Contains(symbol) {
		return fmt.Errorf("%s: %w", symbol, ErrDuplicateSymbol)
	}
	w.Symbols = append(w.Symbols, symbol)
	w.UpdatedAt = time.Now()
	return nil
}

// Remove drops symbol and reports whether it was present
func (w *Watchlist) Remove(symbol string) bool {
	symbol = NormalizeSymbol(symbol)
	for i, s := range w.Symbols {
		if s == symbol {
			w.Symbols = append(w.Symbols[:i:i], w.Symbols[i+1:]...)
			w.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}
