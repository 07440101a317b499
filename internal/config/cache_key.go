package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// BankPayloadKey returns the cache key for a subject's raw bank file
func (r *CacheKeyStruct) BankPayloadKey(subjectID string) string {
	return fmt.Sprintf("bank:%s:payload", subjectID)
}

var CacheKey = NewCacheKeyStruct()
