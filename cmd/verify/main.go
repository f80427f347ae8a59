// Command verify checks that the configured table source is readable and
// internally consistent, and optionally exports a snapshot to object storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/compeng-bot/compeng-bot-go/internal/app"
	"github.com/compeng-bot/compeng-bot-go/internal/config"
	"github.com/compeng-bot/compeng-bot-go/internal/resolver"
	"github.com/compeng-bot/compeng-bot-go/internal/snapshot"
	"github.com/compeng-bot/compeng-bot-go/internal/table"
	"golang.org/x/sync/errgroup"
)

// Verification results
type verifyResult struct {
	name    string
	passed  bool
	message string
}

func main() {
	export := flag.Bool("export", false, "publish every table as <prefix><table>.csv.zst to the configured object bucket")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	fmt.Println("🔍 CompEng Bot - Table Consistency Verification Tool")
	fmt.Println("=====================================================")

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Verify the local database rather than the snapshot it may be exported to.
	srcCfg := cfg.Table
	srcCfg.SQLiteSnapshotKey = ""

	src, closer, err := app.NewTableSource(ctx, srcCfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to open %s source: %v\n", cfg.Table.Source, err)
		os.Exit(1)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	src = table.WithRetry(table.WithTimeout(src, cfg.Table.FetchTimeout), cfg.Table.FetchMaxRetries, config.TableFetchRetryInitial)

	tables, results := fetchAll(ctx, src)
	results = append(results, verifyTables(tables)...)

	if *export {
		results = append(results, exportTables(ctx, cfg.Table, tables)...)
	}

	fmt.Println("\n📊 Verification Results:")
	fmt.Println("========================")

	passedCount := 0
	failedCount := 0

	for _, result := range results {
		status := "❌"
		if result.passed {
			status = "✅"
			passedCount++
		} else {
			failedCount++
		}
		fmt.Printf("%s %s: %s\n", status, result.name, result.message)
	}

	fmt.Printf("\n📈 Summary: %d passed, %d failed\n", passedCount, failedCount)

	if failedCount > 0 {
		os.Exit(1)
	}
}

// fetchAll reads every table concurrently. Tables that fail to load are
// absent from the returned map.
func fetchAll(ctx context.Context, src table.Source) (map[string]*table.Table, []verifyResult) {
	names := table.Names()
	fetched := make([]*table.Table, len(names))
	errs := make([]error, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			fetched[i], errs[i] = src.Fetch(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	tables := make(map[string]*table.Table, len(names))
	results := make([]verifyResult, 0, len(names))
	for i, name := range names {
		if errs[i] != nil {
			results = append(results, verifyResult{
				name:    "Fetch " + name,
				message: errs[i].Error(),
			})
			continue
		}
		tables[name] = fetched[i]
		results = append(results, verifyResult{
			name:    "Fetch " + name,
			passed:  true,
			message: fmt.Sprintf("%d rows, columns %v", fetched[i].Len(), fetched[i].Header),
		})
	}
	return tables, results
}

// verifyTables checks the schema of each table and every lecturer
// reference in the assignment table.
func verifyTables(tables map[string]*table.Table) []verifyResult {
	var results []verifyResult

	if tbl, ok := tables[table.UGCourses]; ok {
		courses, err := resolver.LoadCourses(tbl)
		results = append(results, schemaResult(table.UGCourses, len(courses), err))
	}

	var (
		assignments resolver.Assignments
		directory   resolver.Directory
		errA, errD  error
	)
	tblA, okA := tables[table.CourseLecturers]
	if okA {
		assignments, errA = resolver.LoadAssignments(tblA)
		results = append(results, schemaResult(table.CourseLecturers, len(assignments), errA))
	}
	tblD, okD := tables[table.LecturerInfo]
	if okD {
		directory, errD = resolver.LoadLecturers(tblD)
		results = append(results, schemaResult(table.LecturerInfo, len(directory), errD))
	}

	if !okA || !okD || errA != nil || errD != nil {
		return results
	}

	dangling := resolver.CheckIntegrity(assignments, directory)
	if len(dangling) == 0 {
		return append(results, verifyResult{
			name:    "Lecturer references",
			passed:  true,
			message: "every assigned abbreviation exists in " + table.LecturerInfo,
		})
	}
	for _, err := range dangling {
		results = append(results, verifyResult{
			name:    "Lecturer references",
			message: err.Error(),
		})
	}
	return results
}

func schemaResult(name string, rows int, err error) verifyResult {
	if err != nil {
		return verifyResult{name: "Schema " + name, message: err.Error()}
	}
	return verifyResult{name: "Schema " + name, passed: true, message: fmt.Sprintf("%d records", rows)}
}

// exportTables publishes the fetched tables to the object bucket so the
// object source can serve them.
func exportTables(ctx context.Context, cfg config.TableConfig, tables map[string]*table.Table) []verifyResult {
	client, err := app.NewObjectClient(ctx, cfg)
	if err != nil {
		return []verifyResult{{name: "Export", message: err.Error()}}
	}

	var results []verifyResult
	for _, name := range table.Names() {
		tbl, ok := tables[name]
		if !ok {
			results = append(results, verifyResult{name: "Export " + name, message: "table not fetched"})
			continue
		}
		key, err := table.Publish(ctx, client, cfg.ObjectPrefix, tbl)
		if err != nil {
			results = append(results, verifyResult{name: "Export " + name, message: err.Error()})
			continue
		}
		results = append(results, verifyResult{
			name:    "Export " + name,
			passed:  true,
			message: fmt.Sprintf("s3://%s/%s", client.Bucket(), key),
		})
	}

	if cfg.Source == config.SourceSQLite && cfg.SQLiteSnapshotKey != "" {
		etag, err := snapshot.Publish(ctx, client, cfg.SQLiteSnapshotKey, cfg.SQLitePath)
		if err != nil {
			results = append(results, verifyResult{name: "Export sqlite snapshot", message: err.Error()})
		} else {
			results = append(results, verifyResult{
				name:    "Export sqlite snapshot",
				passed:  true,
				message: fmt.Sprintf("s3://%s/%s (etag %s)", client.Bucket(), cfg.SQLiteSnapshotKey, etag),
			})
		}
	}
	return results
}
