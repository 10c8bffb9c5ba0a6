// Package edgecache creates CloudFront invalidations so deleted
// recordings drop out of the CDN promptly.
package edgecache
