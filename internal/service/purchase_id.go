package service

import (
	"fmt"
	"sync/atomic"
	"time"
)

var purchaseSeq atomic.Uint64

// newPurchaseID returns <unix-millis>-<productID>-<seq>. seq is process-wide, so ids stay
// unique when one checkout creates several records within the same millisecond.
func newPurchaseID(at time.Time, productID string) string {
	return fmt.Sprintf("%d-%s-%d", at.UnixMilli(), productID, purchaseSeq.Add(1))
}
