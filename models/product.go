package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Product is the stock-relevant slice of the catalog document. Stock must
// never go below zero; Version is bumped on every mutating write and acts as
// the optimistic-concurrency token.
type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Stock     int                `bson:"stock" json:"stock"`
	SalePrice float64            `bson:"salePrice" json:"sale_price"`
	Version   int64              `bson:"version" json:"-"`
}

// StockLevel reports a product's stock after a reservation or release, for
// the stock-change notification.
type StockLevel struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}
