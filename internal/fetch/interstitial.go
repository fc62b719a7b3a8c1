package fetch

import (
	"net/url"
	"strings"
)

// interstitialMarkers are body fragments of the Amazon anti-automation
// placeholder page served with HTTP 200 instead of real content.
var interstitialMarkers = []string{
	"To discuss automated access to Amazon data please contact",
	"Type the characters you see in this image",
	"Robot Check",
	"api-services-support@amazon.com",
}

func isAmazonHost(host string) bool {
	return strings.Contains(strings.ToLower(host), "amazon.")
}

func hasInterstitialMarker(body string) bool {
	for _, marker := range interstitialMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// mobileVariant rewrites a product URL to the m. subdomain of the same
// host. The mobile site frequently serves real content when the desktop
// host returns an interstitial.
func mobileVariant(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Host)
	if strings.HasPrefix(host, "m.") {
		return "", false
	}
	host = strings.TrimPrefix(host, "www.")
	u.Host = "m." + host
	return u.String(), true
}
