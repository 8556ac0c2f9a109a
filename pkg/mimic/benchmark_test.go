package mimic

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"testing"
)

func benchController(b *testing.B, src string) *Controller {
	b.Helper()
	c := NewController(&BytesSource{Data: []byte(src)}, WithLogger(quietLogger()))
	if err := c.Initialise(context.Background()); err != nil {
		b.Fatal(err)
	}
	return c
}

// BenchmarkControllerInitialise benchmarks loading and indexing the plant drawing
func BenchmarkControllerInitialise(b *testing.B) {
	for i := 0; i < b.N; i++ {
		c := NewController(&BytesSource{Data: []byte(plant)}, WithLogger(quietLogger()))
		if err := c.Initialise(context.Background()); err != nil {
			b.Fatal(err)
		}
		c.Dispose()
	}
}

// BenchmarkRuleCompile benchmarks compiling a single conditional rule
func BenchmarkRuleCompile(b *testing.B) {
	c := NewCompiler()
	rule := `$eng GTE 50 := value is $value`

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Compile(rule); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkUpdate benchmarks one telemetry cycle against the plant drawing
func BenchmarkUpdate(b *testing.B) {
	c := benchController(b, plant)
	batch := Batch{
		"A": {"eng": 75, "value": 75},
		"B": {"alarm": "ALARM"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Update(batch); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLargeDrawing benchmarks updates against a drawing with many bindings
func BenchmarkLargeDrawing(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("bindings_%d", n), func(b *testing.B) {
			c := benchController(b, drawingWith(n, "$value GTE 50 := red"))
			batch := make(Batch, n)
			for i := 0; i < n; i++ {
				batch[fmt.Sprintf("P%d", i)] = Values{"value": i}
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := c.Update(batch); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkRender benchmarks serialising the live drawing
func BenchmarkRender(b *testing.B) {
	c := benchController(b, drawingWith(100, ":= red"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Render(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkConcurrentUpdates benchmarks updates arriving from several feeds
func BenchmarkConcurrentUpdates(b *testing.B) {
	c := benchController(b, plant)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = c.Update(Batch{"A": {"eng": i % 100, "value": i}})
			i++
		}
	})
}

// BenchmarkMemoryUsage reports heap growth over a fixed number of cycles
func BenchmarkMemoryUsage(b *testing.B) {
	c := benchController(b, drawingWith(100, ":= $value"))

	var m1, m2 runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m1)

	b.ResetTimer()
	var wg sync.WaitGroup
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Update(Batch{"P0": {"value": i}})
		}(i)
	}
	wg.Wait()
	b.StopTimer()

	runtime.GC()
	runtime.ReadMemStats(&m2)
	b.ReportMetric(float64(m2.HeapAlloc)-float64(m1.HeapAlloc), "heap-bytes")
}
