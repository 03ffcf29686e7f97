package oracle

import (
	"context"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/uservault/internal/fixedpoint"
)

// StaticFeed is a settable in-process PriceFeed.
type StaticFeed struct {
	mu       sync.RWMutex
	answer   sdkmath.Int
	decimals uint8
	err      error
}

// NewStaticFeed returns a feed answering answer at the given native decimals.
func NewStaticFeed(answer sdkmath.Int, decimals uint8) *StaticFeed {
	return &StaticFeed{answer: answer, decimals: decimals}
}

// ParseStaticFeed builds a feed from a human readable price such as "2000.5".
func ParseStaticFeed(price string, decimals uint8) (*StaticFeed, error) {
	answer, err := fixedpoint.ParseUnits(price, decimals)
	if err != nil {
		return nil, err
	}
	return NewStaticFeed(answer, decimals), nil
}

func (f *StaticFeed) LatestAnswer(context.Context) (sdkmath.Int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return sdkmath.Int{}, f.err
	}
	return f.answer, nil
}

func (f *StaticFeed) Decimals(context.Context) (uint8, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.decimals, nil
}

// SetAnswer replaces the reported price.
func (f *StaticFeed) SetAnswer(answer sdkmath.Int) {
	f.mu.Lock()
	f.answer = answer
	f.mu.Unlock()
}

// SetError makes LatestAnswer fail with err until cleared with nil.
func (f *StaticFeed) SetError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}
