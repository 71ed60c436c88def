package cmd

import (
	"context"
	"fmt"

	"product-annotator/config"
	"product-annotator/pkg/db"
	"product-annotator/pkg/service"

	"github.com/spf13/cobra"
)

func NewInspectCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect <snapshot.parquet>",
		Short: "查看数据集快照内容",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			duckDB, err := db.OpenDuckDB(ctx, config.NewDefaultDuckDBConfig())
			if err != nil {
				return err
			}
			defer duckDB.Close()

			rows, err := service.ReadSnapshot(ctx, duckDB, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "共 %d 条记录\n", len(rows))
			for i, row := range rows {
				if limit > 0 && i >= limit {
					break
				}
				fmt.Fprintf(out, "%d\t%s\t%s\n", i+1, row.ImagePath, row.ProductLabel)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "最多显示的行数，0 表示全部")
	return cmd
}
