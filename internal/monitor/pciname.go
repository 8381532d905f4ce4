package monitor

import (
	"fmt"
	"sync"

	"github.com/jaypipes/pcidb"
)

var (
	pciOnce sync.Once
	pciDB   *pcidb.PCIDB
	pciErr  error
)

// lookupDeviceName maps a PCI vendor/device pair to a product name.
// Returns "" when the database is unavailable or has no entry.
func lookupDeviceName(vendorID, deviceID uint16) string {
	if vendorID == 0 || deviceID == 0 {
		return ""
	}

	db := loadPCIDatabase()
	if db == nil {
		return ""
	}

	key := fmt.Sprintf("%04x%04x", vendorID, deviceID)
	product, ok := db.Products[key]
	if !ok || product == nil {
		return ""
	}
	return product.Name
}

func loadPCIDatabase() *pcidb.PCIDB {
	pciOnce.Do(func() {
		pciDB, pciErr = pcidb.New()
	})
	if pciErr != nil {
		return nil
	}
	return pciDB
}
