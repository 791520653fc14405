package entities

import "time"

// DefaultAssetIcon is used when an asset is stored without an icon
const DefaultAssetIcon = "tether"

// Wallet is the single wallet document kept by the store
type Wallet struct {
	ID                 string    `json:"id" bson:"_id"`
	Balance            float64   `json:"balance" bson:"balance"`
	Currency           string    `json:"currency" bson:"currency"`
	EquivalentBalance  float64   `json:"equivalentBalance" bson:"equivalentBalance"`
	EquivalentCurrency string    `json:"equivalentCurrency" bson:"equivalentCurrency"`
	Pnl                Pnl       `json:"pnl" bson:"pnl"`
	Assets             []Asset   `json:"assets" bson:"assets"`
	Version            int64     `json:"-" bson:"version"`
	CreatedAt          time.Time `json:"-" bson:"createdAt"`
	UpdatedAt          time.Time `json:"-" bson:"updatedAt"`
}

// Pnl is the profit/loss summary embedded in a wallet
type Pnl struct {
	Value      float64 `json:"value" bson:"value"`
	Percentage string  `json:"percentage" bson:"percentage"`
}

// Asset is an entry of the wallet's asset list. ID is empty for assets that
// were submitted without one through a full wallet replace.
type Asset struct {
	ID                 string  `json:"id,omitempty" bson:"id,omitempty"`
	Symbol             string  `json:"symbol" bson:"symbol"`
	Name               string  `json:"name" bson:"name"`
	Balance            float64 `json:"balance" bson:"balance"`
	Equivalent         float64 `json:"equivalent" bson:"equivalent"`
	EquivalentCurrency string  `json:"equivalentCurrency" bson:"equivalentCurrency"`
	Icon               string  `json:"icon" bson:"icon"`
}

// FindAsset returns the index of the first asset with the given id, or -1.
// An empty id never matches.
func (w *Wallet) FindAsset(id string) int {
	if id == "" {
		return -1
	}
	for i := range w.Assets {
		if w.Assets[i].ID == id {
			return i
		}
	}
	return -1
}

// NewSeedWallet builds the wallet written the first time the store is empty.
// Ids are supplied by the caller so the id scheme stays in one place.
func NewSeedWallet(walletID, assetID string, now time.Time) *Wallet {
	return &Wallet{
		ID:                 walletID,
		Balance:            68.09,
		Currency:           "USDT",
		EquivalentBalance:  68.08,
		EquivalentCurrency: "USD",
		Pnl: Pnl{
			Value:      0,
			Percentage: "0.00",
		},
		Assets: []Asset{
			{
				ID:                 assetID,
				Symbol:             "USDT",
				Name:               "Tether",
				Balance:            68.09720717,
				Equivalent:         68.09,
				EquivalentCurrency: "USD",
				Icon:               DefaultAssetIcon,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
