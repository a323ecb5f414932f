/*

This is the asset metadata returned by the price collaborator per coin type.

*/

package types

// AssetMetadata holds the display data of one coin type.
type AssetMetadata struct {
	CoinType string `json:"coin_type"`
	Price    string `json:"price"` // USD, decimal string
	Logo     string `json:"logo,omitempty"`
}
