package profile

import "fmt"

// Diagnose compares the provider's reported post count with the number of
// posts actually scraped. The first matching rule wins; nil means no warning.
func Diagnose(reported int64, scraped int) *string {
	var warning string
	switch {
	case reported > 0 && scraped == 0:
		warning = fmt.Sprintf("Critical: ghost data detected. The provider reported %d posts but none were scraped; engagement metrics are unreliable", reported)
	case reported > 10 && scraped < 5:
		warning = fmt.Sprintf("Limited data: the provider reported %d posts but only %d were scraped; engagement metrics may be inaccurate", reported, scraped)
	default:
		return nil
	}
	return &warning
}
