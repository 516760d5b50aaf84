package model

import "strings"

// CorrelationGroup labels a set of symbols treated as correlated for
// exposure limiting.
type CorrelationGroup string

const (
	GroupLayer1  CorrelationGroup = "layer1"
	GroupDeFi    CorrelationGroup = "defi"
	GroupMeme    CorrelationGroup = "meme"
	GroupAI      CorrelationGroup = "ai"
	GroupHedge   CorrelationGroup = "hedge"
	GroupUnknown CorrelationGroup = "unknown"
)

var correlationGroups = map[string]CorrelationGroup{
	"BTCUSDT":  GroupLayer1,
	"ETHUSDT":  GroupLayer1,
	"SOLUSDT":  GroupLayer1,
	"AVAXUSDT": GroupLayer1,
	"ADAUSDT":  GroupLayer1,
	"DOTUSDT":  GroupLayer1,
	"LINKUSDT": GroupDeFi,
	"UNIUSDT":  GroupDeFi,
	"AAVEUSDT": GroupDeFi,
	"DOGEUSDT": GroupMeme,
	"SHIBUSDT": GroupMeme,
	"PEPEUSDT": GroupMeme,
	"FETUSDT":  GroupAI,
	"RNDRUSDT": GroupAI,
	"TAOUSDT":  GroupAI,
	"PAXGUSDT": GroupHedge,
}

// GroupFor returns the correlation group for a symbol.
func GroupFor(symbol string) CorrelationGroup {
	if g, ok := correlationGroups[strings.ToUpper(symbol)]; ok {
		return g
	}
	return GroupUnknown
}

// coreSymbols are re-queued to Analyzing immediately after an exit;
// everything else waits for the external sentinel.
var coreSymbols = map[string]bool{
	"BTCUSDT": true,
	"ETHUSDT": true,
	"SOLUSDT": true,
}

// IsCore reports whether a symbol is in the always-requeue core set.
func IsCore(symbol string) bool {
	return coreSymbols[strings.ToUpper(symbol)]
}
