package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
	"github.com/spf13/cobra"

	bookModel "library-backend/internal/domains/book/model"
	lendingJob "library-backend/internal/domains/lending/job"
	lendingModel "library-backend/internal/domains/lending/model"
	lendingService "library-backend/internal/domains/lending/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type discrepancyRow struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	BookID     uuid.UUID  `db:"book_id" json:"book_id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Kind       string     `db:"kind" json:"kind"`
	Delta      int        `db:"delta" json:"delta"`
	Reason     string     `db:"reason" json:"reason"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
}

var discrepanciesCmd = &cobra.Command{
	Use:     "discrepancies",
	Aliases: []string{"disc"},
	Short:   "Inspect and reconcile recorded stock discrepancies",
}

var (
	flagOpenOnly bool
	flagIDs      []string
	flagJSON     bool
	flagNoApply  bool
	flagAsync    bool
	flagBy       string
)

var discrepanciesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discrepancies, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseUUIDs(flagIDs)
		if err != nil {
			return err
		}
		return withDB(cmd.Context(), func(db *sqlx.DB) error {
			rows, err := listDiscrepancies(cmd.Context(), db, flagOpenOnly, ids)
			if err != nil {
				return err
			}
			if flagJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(rows)
			}
			return printDiscrepancies(cmd.OutOrStdout(), rows)
		})
	},
}

var discrepanciesResolveCmd = &cobra.Command{
	Use:   "resolve ID",
	Short: "Mark a discrepancy resolved and apply its stock delta",
	Long: `Resolve stamps resolved_at on an open discrepancy and, unless --no-apply is
given, adds its delta to the book's stock in the same transaction. Stock changes go
through the catalog ledger, so the catalog cache in --redis-addr is cleared
after commit; pass an empty --redis-addr only when the service has no Redis.

With --async the work is enqueued for the worker instead of run here.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid discrepancy id %q", args[0])
		}

		var resolvedBy *uuid.UUID
		if flagBy != "" {
			by, err := uuid.Parse(flagBy)
			if err != nil {
				return fmt.Errorf("invalid --by %q", flagBy)
			}
			resolvedBy = &by
		}

		if flagAsync {
			if flagNoApply {
				return errors.New("--async always applies the delta; drop --no-apply")
			}
			return enqueueReconcile(cmd, id, resolvedBy)
		}

		return withDiscrepancyService(cmd.Context(), func(svc lendingService.DiscrepancyServiceInterface) error {
			if err := resolveDiscrepancy(cmd.Context(), svc, id, resolvedBy, !flagNoApply); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "resolved %s\n", id)
			return nil
		})
	},
}

func init() {
	discrepanciesListCmd.Flags().BoolVar(&flagOpenOnly, "open", false, "only unresolved discrepancies")
	discrepanciesListCmd.Flags().StringSliceVar(&flagIDs, "id", nil, "restrict to these ids (repeatable)")
	discrepanciesListCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")

	discrepanciesResolveCmd.Flags().BoolVar(&flagNoApply, "no-apply", false, "close without touching stock")
	discrepanciesResolveCmd.Flags().BoolVar(&flagAsync, "async", false, "enqueue a reconcile task for the worker")
	discrepanciesResolveCmd.Flags().StringVar(&flagBy, "by", "", "admin account id recorded as resolver")

	discrepanciesCmd.AddCommand(discrepanciesListCmd, discrepanciesResolveCmd)
}

func parseUUIDs(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", s)
		}
		out = append(out, id.String())
	}
	return out, nil
}

func listDiscrepancies(ctx context.Context, db *sqlx.DB, openOnly bool, ids []string) ([]discrepancyRow, error) {
	query := `
		SELECT id, book_id, user_id, kind, delta, reason, created_at, resolved_at, resolved_by
		FROM stock_discrepancies
		WHERE ($1 = FALSE OR resolved_at IS NULL)
		  AND (cardinality($2::uuid[]) = 0 OR id = ANY($2::uuid[]))
		ORDER BY created_at ASC
	`

	rows := []discrepancyRow{}
	if err := db.SelectContext(ctx, &rows, query, openOnly, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}
	return rows, nil
}

func printDiscrepancies(out io.Writer, rows []discrepancyRow) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tBOOK\tUSER\tDELTA\tCREATED\tRESOLVED")
	for _, r := range rows {
		resolved := "-"
		if r.ResolvedAt != nil {
			resolved = r.ResolvedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%+d\t%s\t%s\n",
			r.ID, r.Kind, r.BookID, r.UserID, r.Delta, r.CreatedAt.Format(time.RFC3339), resolved)
	}
	return w.Flush()
}

// resolveDiscrepancy runs the resolution and turns service errors into
// operator guidance.
func resolveDiscrepancy(ctx context.Context, svc lendingService.DiscrepancyServiceInterface, id uuid.UUID, resolvedBy *uuid.UUID, apply bool) error {
	_, err := svc.Resolve(ctx, id, resolvedBy, apply)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lendingModel.ErrDiscrepancyNotFound):
		return fmt.Errorf("discrepancy %s not found", id)
	case errors.Is(err, lendingModel.ErrDiscrepancyResolved):
		return fmt.Errorf("discrepancy %s is already resolved", id)
	case errors.Is(err, bookModel.ErrBookNotFound):
		return fmt.Errorf("book of discrepancy %s no longer exists; use --no-apply to close it", id)
	case errors.Is(err, bookModel.ErrStockNegative):
		return fmt.Errorf("applying discrepancy %s would make stock negative; use --no-apply to close it", id)
	default:
		return fmt.Errorf("resolve discrepancy %s: %w", id, err)
	}
}

func enqueueReconcile(cmd *cobra.Command, id uuid.UUID, resolvedBy *uuid.UUID) error {
	task, err := lendingJob.NewReconcileTask(id, resolvedBy)
	if err != nil {
		return err
	}

	client := asynq.NewClient(redisClientOpt(cfg))
	defer client.Close()

	info, err := client.EnqueueContext(cmd.Context(), task)
	if err != nil {
		return fmt.Errorf("enqueue reconcile: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", info.ID, info.Queue)
	return nil
}
