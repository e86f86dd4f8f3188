package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lakeviewdb/pagestore"
	"github.com/lakeviewdb/pagestore/internal/descriptor"
	"github.com/lakeviewdb/pagestore/kvstore/memkv"
)

// inspectOpts holds the flags for the inspect subcommand. Since the only
// driver shipped with this module is the in-memory memkv reference
// implementation, which does not persist across process invocations,
// inspect writes a small synthetic dataset through a Sink and then reads it
// back through a Source, so the command demonstrates the full write/attach
// round trip end to end. Pointing it at a durable driver is a one-line
// change: swap memkv.New(...) for a real kvstore.Driver implementation.
type inspectOpts struct {
	uri         string
	nColumns    int
	nClusters   int
	pagesPerCol int
	rowsPerPage int
	compression int
}

func newInspectCommand() *cobra.Command {
	o := &inspectOpts{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "write and read back a synthetic dataset, printing its layout",
		Long: `
Builds a small dataset through a Sink against the in-memory reference
driver, attaches to it with a Source, and prints the resulting column,
cluster and page layout.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(o)
		},
	}
	cmd.Flags().StringVar(&o.uri, "uri", "kv://demo-pool/demo-container", "dataset URI")
	cmd.Flags().IntVar(&o.nColumns, "columns", 2, "number of columns")
	cmd.Flags().IntVar(&o.nClusters, "clusters", 2, "number of clusters")
	cmd.Flags().IntVar(&o.pagesPerCol, "pages-per-cluster", 2, "pages per column per cluster")
	cmd.Flags().IntVar(&o.rowsPerPage, "rows-per-page", 100, "elements per page")
	cmd.Flags().IntVar(&o.compression, "compression", 3, "zstd compression level, 0 disables compression")
	return cmd
}

func runInspect(o *inspectOpts) error {
	uri, err := pagestore.ParseURI(o.uri)
	if err != nil {
		return err
	}
	driver := memkv.New("default", "meta")

	sink := pagestore.NewSink(driver, uri, pagestore.WriteOptions{
		Compression: o.compression,
	})

	columns := make([]descriptor.ColumnDescriptor, o.nColumns)
	for i := range columns {
		columns[i] = descriptor.ColumnDescriptor{ID: uint64(i), ElementSize: 8}
	}
	if err := sink.Create(columns); err != nil {
		return err
	}

	for cluster := 0; cluster < o.nClusters; cluster++ {
		for _, col := range columns {
			for page := 0; page < o.pagesPerCol; page++ {
				p, err := sink.ReservePage(col.ID, o.rowsPerPage)
				if err != nil {
					return err
				}
				if _, err := sink.CommitPage(p); err != nil {
					return err
				}
				sink.ReleasePage(&p)
			}
		}
		if err := sink.CommitCluster(uint64(o.rowsPerPage * o.pagesPerCol)); err != nil {
			return err
		}
	}
	if err := sink.CommitDataset(); err != nil {
		return err
	}

	source := pagestore.NewSource(driver, uri, pagestore.ReadOptions{})
	if err := source.Attach(); err != nil {
		return err
	}

	fmt.Printf("dataset: %s\n\n", uri)
	printColumns(source)
	printClusters(source)
	return nil
}

func printColumns(source *pagestore.Source) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"column", "element size"})
	for _, col := range source.Descriptor().Columns() {
		table.Append([]string{strconv.FormatUint(col.ID, 10), strconv.Itoa(col.ElementSize)})
	}
	table.Render()
	fmt.Println()
}

func printClusters(source *pagestore.Source) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"cluster", "entries", "column", "pages"})
	for _, col := range source.Descriptor().Columns() {
		for clusterID := uint64(0); ; clusterID++ {
			cd, ok := source.Descriptor().ClusterDescriptor(clusterID)
			if !ok {
				break
			}
			pr := cd.PageRange(col.ID)
			table.Append([]string{
				strconv.FormatUint(cd.ID, 10),
				strconv.FormatUint(cd.NEntries, 10),
				strconv.FormatUint(col.ID, 10),
				strconv.Itoa(len(pr.PageInfos)),
			})
		}
	}
	table.Render()
}
