package volatility

import "fmt"

// MethodKind names the estimation method of a row
type MethodKind int

const (
	KindNone MethodKind = iota
	KindPrimaryWindow
	KindEwmaFallback
	KindPartialWindow
	KindPeerMedian
)

var kindNames = map[MethodKind]string{
	KindNone:          "none",
	KindPrimaryWindow: "primary_window",
	KindEwmaFallback:  "ewma_fallback",
	KindPartialWindow: "partial_window",
	KindPeerMedian:    "peer_median",
}

// String returns the name written to output files
func (k MethodKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("method(%d)", int(k))
}

// Method is the closed set of ways a sigma_E value can be obtained.
// Implementations are PrimaryWindow, EwmaFallback, PartialWindow, PeerMedian
// and NoData.
type Method interface {
	Kind() MethodKind
	// WindowLen is the number of observations the method looked at
	WindowLen() int
	sealed()
}

// PrimaryWindow is the sample standard deviation over a full window
type PrimaryWindow struct{ Window int }

// EwmaFallback is an exponentially weighted estimate over a short window
type EwmaFallback struct {
	Window int
	Lambda float64
}

// PartialWindow is the sample standard deviation over a short daily window
type PartialWindow struct{ Window int }

// PeerMedian marks a value taken from the median of same-year same-size peers
type PeerMedian struct{ Window int }

// NoData marks a row with no usable observations
type NoData struct{}

func (PrimaryWindow) Kind() MethodKind { return KindPrimaryWindow }
func (EwmaFallback) Kind() MethodKind  { return KindEwmaFallback }
func (PartialWindow) Kind() MethodKind { return KindPartialWindow }
func (PeerMedian) Kind() MethodKind    { return KindPeerMedian }
func (NoData) Kind() MethodKind        { return KindNone }

func (m PrimaryWindow) WindowLen() int { return m.Window }
func (m EwmaFallback) WindowLen() int  { return m.Window }
func (m PartialWindow) WindowLen() int { return m.Window }
func (m PeerMedian) WindowLen() int    { return m.Window }
func (NoData) WindowLen() int          { return 0 }

func (PrimaryWindow) sealed() {}
func (EwmaFallback) sealed()  {}
func (PartialWindow) sealed() {}
func (PeerMedian) sealed()    {}
func (NoData) sealed()        {}

// IsEstimated reports whether m produced sigma_E from the entity's own returns
func IsEstimated(m Method) bool {
	switch m.(type) {
	case PrimaryWindow, EwmaFallback, PartialWindow:
		return true
	default:
		return false
	}
}

// IsPlaceholder reports whether m awaits a peer-median value
func IsPlaceholder(m Method) bool {
	switch m.(type) {
	case PeerMedian, NoData:
		return true
	default:
		return false
	}
}

// ParseMethod rebuilds a Method from its stored name and window. lambda is
// only used for ewma_fallback.
func ParseMethod(name string, window int, lambda float64) (Method, error) {
	switch name {
	case "primary_window":
		return PrimaryWindow{Window: window}, nil
	case "ewma_fallback":
		return EwmaFallback{Window: window, Lambda: lambda}, nil
	case "partial_window":
		return PartialWindow{Window: window}, nil
	case "peer_median":
		return PeerMedian{Window: window}, nil
	case "none", "":
		return NoData{}, nil
	}
	return nil, fmt.Errorf("unknown volatility method %q", name)
}

// Flag qualifies the data behind an estimate
type Flag int

const (
	FlagNone Flag = iota
	FlagInsufficientData
	FlagNoData
)

// String returns the flag name, empty for FlagNone
func (f Flag) String() string {
	switch f {
	case FlagInsufficientData:
		return "insufficient_data"
	case FlagNoData:
		return "no_data"
	default:
		return ""
	}
}

// ParseFlag is the inverse of Flag.String
func ParseFlag(s string) (Flag, error) {
	switch s {
	case "", "none":
		return FlagNone, nil
	case "insufficient_data":
		return FlagInsufficientData, nil
	case "no_data":
		return FlagNoData, nil
	}
	return FlagNone, fmt.Errorf("unknown volatility flag %q", s)
}
