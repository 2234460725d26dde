package store_test

import (
	"testing"

	"github.com/Yairkad/vaad-bayit-sub000/billing"
	"github.com/Yairkad/vaad-bayit-sub000/billing/store"
	"github.com/Yairkad/vaad-bayit-sub000/billing/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) billing.Store {
		return store.NewMemory()
	})
}
