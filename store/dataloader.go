package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"gitea.kood.tech/petrkubec/nearby/presence"
)

// DataLoaderContextKey is the key used to store dataloaders in context
type DataLoaderContextKey string

const dataLoaderKey DataLoaderContextKey = "dataloader"

// DataLoaders holds the per-request dataloaders
type DataLoaders struct {
	PrivacyLoader *dataloader.Loader[int, *presence.PrivacySettings]
}

// NewDataLoaders creates new dataloaders with the database connection
func NewDataLoaders(db *sql.DB) *DataLoaders {
	return &DataLoaders{
		PrivacyLoader: dataloader.NewBatchedLoader(privacyBatchFn(db),
			dataloader.WithWait[int, *presence.PrivacySettings](16*time.Millisecond)),
	}
}

// GetDataLoadersFromContext retrieves dataloaders from context
func GetDataLoadersFromContext(ctx context.Context) *DataLoaders {
	if dl, ok := ctx.Value(dataLoaderKey).(*DataLoaders); ok {
		return dl
	}
	return nil
}

// WithDataLoaders adds dataloaders to context
func WithDataLoaders(ctx context.Context, dl *DataLoaders) context.Context {
	return context.WithValue(ctx, dataLoaderKey, dl)
}

// DataLoaderMiddleware gives every request its own loaders so cached
// privacy settings never outlive the request.
func DataLoaderMiddleware(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithDataLoaders(r.Context(), NewDataLoaders(db))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// privacyBatchFn loads privacy_settings rows. Users without a row get a nil
// result, meaning "no record".
func privacyBatchFn(db *sql.DB) dataloader.BatchFunc[int, *presence.PrivacySettings] {
	return func(ctx context.Context, keys []int) []*dataloader.Result[*presence.PrivacySettings] {
		results := make([]*dataloader.Result[*presence.PrivacySettings], len(keys))

		keyMap := make(map[int][]int) // userID -> indexes in results
		for i, key := range keys {
			keyMap[key] = append(keyMap[key], i)
			results[i] = &dataloader.Result[*presence.PrivacySettings]{}
		}

		if len(keys) == 0 {
			return results
		}

		placeholders := make([]string, len(keys))
		args := make([]any, len(keys))
		for i, key := range keys {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = key
		}

		query := fmt.Sprintf(`
			SELECT user_id, hide_online_status
			FROM privacy_settings
			WHERE user_id IN (%s)
		`, strings.Join(placeholders, ", "))

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			for i := range results {
				results[i].Error = err
			}
			return results
		}
		defer rows.Close()

		for rows.Next() {
			var userID int
			var settings presence.PrivacySettings
			if err := rows.Scan(&userID, &settings.HideOnlineStatus); err != nil {
				for i := range results {
					if results[i].Data == nil && results[i].Error == nil {
						results[i].Error = err
					}
				}
				return results
			}
			for _, idx := range keyMap[userID] {
				s := settings
				results[idx].Data = &s
			}
		}
		if err := rows.Err(); err != nil {
			for i := range results {
				if results[i].Data == nil {
					results[i].Error = err
				}
			}
		}
		return results
	}
}

// Privacy implements discovery.PrivacyReader. It uses the request's loaders
// when present and a fresh loader otherwise.
type Privacy struct {
	DB *sql.DB
}

func (p Privacy) Settings(ctx context.Context, userIDs []int) (map[int]presence.PrivacySettings, error) {
	dl := GetDataLoadersFromContext(ctx)
	if dl == nil {
		dl = NewDataLoaders(p.DB)
	}

	thunks := make([]dataloader.Thunk[*presence.PrivacySettings], len(userIDs))
	for i, id := range userIDs {
		thunks[i] = dl.PrivacyLoader.Load(ctx, id)
	}

	out := make(map[int]presence.PrivacySettings, len(userIDs))
	for i, thunk := range thunks {
		settings, err := thunk()
		if err != nil {
			return nil, err
		}
		if settings != nil {
			out[userIDs[i]] = *settings
		}
	}
	return out, nil
}
