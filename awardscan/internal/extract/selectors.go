package extract

// Strategy is one tier of the result-candidate cascade.
type Strategy struct {
	Name     string `yaml:"name"`
	Selector string `yaml:"selector"`
}

// Selectors and phrases for the award results page. The markup is not under
// our control and changes without notice; keep every site-specific string in
// this file.
var (
	DefaultBlockPhrases = []string{
		"unable to complete your request",
		"Please try again later",
	}

	DefaultEmptyPhrases = []string{
		"No flights",
		"no flights",
		"not available",
	}

	// Most specific first.
	DefaultTiers = []Strategy{
		{Name: "result", Selector: `[class*='flight-result'], [class*='FlightResult'], [data-qa*='flight']`},
		{Name: "card", Selector: `[class*='flightCard'], [class*='flight-card']`},
		{Name: "generic", Selector: `li[class*='flight'], div[class*='flight']`},
	}

	DefaultPriceSelector = `[class*='miles'], [class*='award-price'], [data-qa*='price']`
)
