//go:build bench

package doc2pdf

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func BenchmarkResolvePoolSize(b *testing.B) {
	for _, n := range []int{0, 1, 4, 8} {
		b.Run(sizeName(n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ResolvePoolSize(n)
			}
		})
	}
}

// BenchmarkRendererPoolAcquireRelease measures the permit cycle without a browser.
func BenchmarkRendererPoolAcquireRelease(b *testing.B) {
	for _, size := range []int{1, 2, 4, 8} {
		b.Run(sizeName(size), func(b *testing.B) {
			pool := NewRendererPool(&mockRenderer{}, size, time.Second)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				permit, err := pool.Acquire(ctx)
				if err != nil {
					b.Fatal(err)
				}
				permit.Release()
			}
		})
	}
}

func BenchmarkRendererPoolParallel(b *testing.B) {
	pool := NewRendererPool(&mockRenderer{}, 4, time.Minute)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			permit, err := pool.Acquire(ctx)
			if err != nil {
				b.Error(err)
				return
			}
			permit.Release()
		}
	})
}

func sizeName(n int) string {
	if n == 0 {
		return "auto"
	}
	return fmt.Sprintf("size=%d", n)
}
