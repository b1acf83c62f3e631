package rating

import (
	"github.com/doarbem/doar-api/internal/model"
)

// Tier boundaries in points. Each band is 100 wide except the open-ended top.
const (
	tierPrataMin    = 100
	tierOuroMin     = 200
	tierDiamanteMin = 300
	tierPlatinaMin  = 400
)

// Classify maps an institution's cumulative points to its display tier.
// Pure function, no side effects.
func Classify(points int) model.Tier {
	switch {
	case points >= tierPlatinaMin:
		return model.Tier{Name: "Platina", Color: "#e5e4e2"}
	case points >= tierDiamanteMin:
		return model.Tier{Name: "Diamante", Color: "#b9f2ff"}
	case points >= tierOuroMin:
		return model.Tier{Name: "Ouro", Color: "#ffd700"}
	case points >= tierPrataMin:
		return model.Tier{Name: "Prata", Color: "#c0c0c0"}
	default:
		return model.Tier{Name: "Bronze", Color: "#cd7f32"}
	}
}
