// Loom CLI - exercises the runtime kernel with a sample workload.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/loom/rt"
	"github.com/chazu/loom/rt/snapshot"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	configDir := flag.String("c", "", "Directory containing loom.toml")
	workers := flag.Int("workers", 4, "Number of workers to start")
	jobs := flag.Int("jobs", 16, "Number of jobs to schedule")
	depth := flag.Int("depth", 32, "Length of the list graph each job receives")
	snapshotOut := flag.Bool("snapshot", false, "Save each job result to the snapshot database")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: loom [options]\n\n")
		fmt.Fprintf(os.Stderr, "Starts workers, schedules list-summing jobs with checked transfer,\n")
		fmt.Fprintf(os.Stderr, "and prints the results.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  loom                       # 16 jobs across 4 workers\n")
		fmt.Fprintf(os.Stderr, "  loom -workers 1 -jobs 100  # serial execution on one worker\n")
		fmt.Fprintf(os.Stderr, "  loom -c . -snapshot        # loom.toml config, persist results\n")
	}
	flag.Parse()

	cfg := rt.DefaultConfig()
	if *configDir != "" {
		loaded, err := rt.LoadConfig(*configDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *verbose && cfg.Verbosity < 1 {
		cfg.Verbosity = 1
	}
	commonlog.Configure(cfg.Verbosity, nil)

	rt.InitGlobal(cfg)
	defer rt.CloseGlobal()
	runtime := rt.GlobalRuntime()

	var store *snapshot.Store
	if *snapshotOut {
		path := cfg.SnapshotPath
		if path == "" {
			path = "loom-snapshots.db"
		}
		var err error
		store, err = snapshot.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening snapshot store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	pool := make([]*rt.Worker, *workers)
	for i := range pool {
		pool[i] = runtime.StartWorker(fmt.Sprintf("cli-%d", i))
	}

	futures := make([]*rt.Future, 0, *jobs)
	for i := 0; i < *jobs; i++ {
		w := pool[i%len(pool)]
		base := int64(i)
		n := *depth

		future, err := w.Schedule(rt.TransferChecked,
			func() rt.Value {
				return buildList(runtime.Heap, base, n)
			},
			sumList)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error scheduling job %d: %v\n", i, err)
			os.Exit(1)
		}
		futures = append(futures, future)
	}

	for i, future := range futures {
		result, err := future.Wait()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Job %d failed: %v\n", i, err)
			continue
		}
		sum := rt.MustObjectFromValue(result).GetSlot(0).SmallInt()
		if *verbose {
			fmt.Printf("job %d: sum=%d\n", i, sum)
		}
		if store != nil {
			id, err := store.Save(runtime.Heap, result, fmt.Sprintf("job-%d", i))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error saving snapshot for job %d: %v\n", i, err)
				continue
			}
			if *verbose {
				fmt.Printf("job %d: snapshot %s\n", i, id)
			}
		}
	}

	for _, w := range pool {
		future, err := w.RequestTermination(true)
		if err != nil {
			continue
		}
		future.Wait()
	}

	fmt.Printf("%d jobs on %d workers done; %d objects live\n",
		*jobs, *workers, runtime.Heap.Live())
	if store != nil {
		infos, err := store.List()
		if err == nil {
			fmt.Printf("%d snapshots stored\n", len(infos))
		}
	}
}

// buildList allocates a singly-linked list of Cons cells holding n small
// integers starting at base.
func buildList(h *rt.Heap, base int64, n int) rt.Value {
	tail := rt.Nil
	for i := n - 1; i >= 0; i-- {
		cell := h.Alloc("Cons", 2)
		h.SetSlot(cell, 0, rt.FromSmallInt(base+int64(i)))
		h.SetSlot(cell, 1, tail)
		if tail.IsObject() {
			// The cell's slot now keeps the tail alive.
			h.Release(rt.ObjectFromValue(tail))
		}
		tail = cell.ToValue()
	}
	return tail
}

// sumList sums the integers of a Cons list into a one-slot Box object.
func sumList(input rt.Value) rt.Value {
	heap := rt.GlobalRuntime().Heap
	var sum int64
	for v := input; v.IsObject(); {
		cell := rt.ObjectFromValue(v)
		sum += cell.GetSlot(0).SmallInt()
		v = cell.GetSlot(1)
	}
	box := heap.Alloc("Box", 1)
	heap.SetSlot(box, 0, rt.FromSmallInt(sum))
	return box.ToValue()
}
