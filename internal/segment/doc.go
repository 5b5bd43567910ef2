// Package segment defines message elements: the typed pieces (text,
// mentions, quotes, images) a reply is assembled from before an adapter
// serializes them for its protocol.
package segment
