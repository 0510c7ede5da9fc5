package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TOURIFY_TEST_MODE") == "" {
			_ = os.Setenv("TOURIFY_TEST_MODE", "1")
		}
	})
}
