package shopline

import (
	"sync"
	"time"
)

// Installation is an app installation token delivered by the platform.
type Installation struct {
	MerchantID  string
	AccessToken string
	InstalledAt time.Time
}

// Installations tracks installation tokens by merchant id. It is fed by
// app installation webhooks and read by the merchant Directory.
type Installations struct {
	mu         sync.RWMutex
	byMerchant map[string]Installation
}

func NewInstallations() *Installations {
	return &Installations{byMerchant: make(map[string]Installation)}
}

func (i *Installations) Put(inst Installation) {
	i.mu.Lock()
	i.byMerchant[inst.MerchantID] = inst
	i.mu.Unlock()
}

func (i *Installations) Get(merchantID string) (Installation, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	inst, ok := i.byMerchant[merchantID]
	return inst, ok
}

// Delete removes the installation and reports whether one existed.
func (i *Installations) Delete(merchantID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.byMerchant[merchantID]
	delete(i.byMerchant, merchantID)
	return ok
}

func (i *Installations) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byMerchant)
}
