package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Document numbers are human-facing references, not identities. The format
// keeps the randomized suffix scheme clients already print on paperwork;
// collision safety comes from the snowflake ID, not the number.
const (
	invoicePrefix  = "INV"
	estimatePrefix = "EST"
	orderPrefix    = "ORD"
)

// NewInvoiceNumber returns a reference like "INV-4821".
func NewInvoiceNumber() string { return numberWithSuffix(invoicePrefix, 4) }

// NewEstimateNumber returns a reference like "EST-0392".
func NewEstimateNumber() string { return numberWithSuffix(estimatePrefix, 4) }

// NewOrderNumber returns a reference like "ORD-284017".
func NewOrderNumber() string { return numberWithSuffix(orderPrefix, 6) }

func numberWithSuffix(prefix string, digits int) string {
	bound := big.NewInt(1)
	for i := 0; i < digits; i++ {
		bound.Mul(bound, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		// crypto/rand only fails when the platform entropy source is broken.
		panic(err)
	}
	return fmt.Sprintf("%s-%0*d", prefix, digits, n.Int64())
}
