package budget

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator estimates the token cost of a piece of text, used to size
// CheckAndReserve calls before an attempt starts.
type Estimator interface {
	EstimateTokens(text string) uint64
}

// TiktokenEstimator counts tokens with a tiktoken encoding, falling
// back to a character-ratio estimate when the encoding cannot be
// initialized (e.g. no network access to fetch BPE data).
type TiktokenEstimator struct {
	encoding string

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktokenEstimator creates an estimator for the given encoding.
// An empty encoding defaults to cl100k_base.
func NewTiktokenEstimator(encoding string) *TiktokenEstimator {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &TiktokenEstimator{encoding: encoding}
}

// init lazily loads the encoding; it may download BPE data on first use.
func (e *TiktokenEstimator) init() error {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(e.encoding)
		if err != nil {
			e.initErr = err
			return
		}
		e.enc = enc
	})
	return e.initErr
}

// EstimateTokens implements Estimator.
func (e *TiktokenEstimator) EstimateTokens(text string) uint64 {
	if text == "" {
		return 0
	}
	if err := e.init(); err != nil {
		return fallbackEstimate(text)
	}
	return uint64(len(e.enc.Encode(text, nil, nil)))
}

// fallbackEstimate approximates ~4 ASCII chars per token and ~1.5 for
// CJK, never returning zero for non-empty text.
func fallbackEstimate(text string) uint64 {
	total := utf8.RuneCountInString(text)
	cjk := 0
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FA5 {
			cjk++
		}
	}

	estimated := uint64(float64(cjk)/1.5 + float64(total-cjk)/4.0)
	if estimated == 0 {
		estimated = 1
	}
	return estimated
}

// FixedEstimator returns the same cost for every task attempt. Useful
// when the caller budgets a flat per-attempt cost instead of sizing by
// prompt text.
type FixedEstimator uint64

// EstimateTokens implements Estimator.
func (f FixedEstimator) EstimateTokens(string) uint64 {
	return uint64(f)
}
