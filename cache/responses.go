// ABOUTME: Named-key helpers over the response cache, one per data kind
// ABOUTME: Each kind has a fixed TTL and a key namespaced by its identifier

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// TTLs per data kind.
const (
	UserTTL       = time.Hour
	TeamTTL       = time.Hour
	QRTTL         = time.Hour
	PromotionsTTL = 30 * time.Minute
	HistoryTTL    = 2 * time.Hour
	StatisticsTTL = 2 * time.Hour
	StatusTTL     = 5 * time.Minute
)

// PromotionsKey is shared by all users.
const PromotionsKey = "promotions"

func UserKey(userID string) string       { return "user_" + userID }
func TeamKey(teamID string) string       { return "team_" + teamID }
func HistoryKey(userID string) string    { return "history_" + userID }
func StatisticsKey(userID string) string { return "statistics_" + userID }
func StatusKey(userID string) string     { return "status_" + userID }
func QRKey(userID string) string         { return "qr_" + userID }
func OfflineKey(key string) string       { return "offline_" + key }

func (c *Cache) CacheUserData(ctx context.Context, userID string, user any) bool {
	return c.Set(ctx, UserKey(userID), user, UserTTL)
}

func (c *Cache) CachedUserData(ctx context.Context, userID string, dest any) bool {
	return c.Get(ctx, UserKey(userID), dest)
}

func (c *Cache) CacheTeamData(ctx context.Context, teamID string, team any) bool {
	return c.Set(ctx, TeamKey(teamID), team, TeamTTL)
}

func (c *Cache) CachedTeamData(ctx context.Context, teamID string, dest any) bool {
	return c.Get(ctx, TeamKey(teamID), dest)
}

func (c *Cache) CacheHistoryData(ctx context.Context, userID string, history any) bool {
	return c.Set(ctx, HistoryKey(userID), history, HistoryTTL)
}

func (c *Cache) CachedHistoryData(ctx context.Context, userID string, dest any) bool {
	return c.Get(ctx, HistoryKey(userID), dest)
}

func (c *Cache) CachePromotionsData(ctx context.Context, promotions any) bool {
	return c.Set(ctx, PromotionsKey, promotions, PromotionsTTL)
}

func (c *Cache) CachedPromotionsData(ctx context.Context, dest any) bool {
	return c.Get(ctx, PromotionsKey, dest)
}

func (c *Cache) CacheQRData(ctx context.Context, userID string, qr any) bool {
	return c.Set(ctx, QRKey(userID), qr, QRTTL)
}

func (c *Cache) CachedQRData(ctx context.Context, userID string, dest any) bool {
	return c.Get(ctx, QRKey(userID), dest)
}

// InvalidateUserCache drops everything cached for a user. Team data is keyed
// by team id; an empty teamID falls back to the user id.
func (c *Cache) InvalidateUserCache(ctx context.Context, userID, teamID string) {
	if teamID == "" {
		teamID = userID
	}
	c.Delete(ctx, UserKey(userID))
	c.Delete(ctx, TeamKey(teamID))
	c.Delete(ctx, HistoryKey(userID))
	c.Delete(ctx, StatisticsKey(userID))
	c.Delete(ctx, StatusKey(userID))
	c.Delete(ctx, QRKey(userID))
}

// offlineRecord carries its own age so the payload can be rejected even if
// the store keeps it longer than intended.
type offlineRecord struct {
	Data       json.RawMessage `json:"data"`
	Timestamp  int64           `json:"timestamp"`
	Expiration int64           `json:"expiration"`
}

// StoreOfflineData keeps data available for offline rendering.
func (c *Cache) StoreOfflineData(ctx context.Context, key string, data any, ttl ...time.Duration) bool {
	expiration := c.defaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		expiration = ttl[0]
	}

	raw, err := json.Marshal(data)
	if err != nil {
		c.errors.Add(1)
		return false
	}

	return c.Set(ctx, OfflineKey(key), offlineRecord{
		Data:       raw,
		Timestamp:  time.Now().Unix(),
		Expiration: int64(expiration / time.Second),
	}, expiration)
}

// GetOfflineData decodes offline data into dest. Records older than their
// recorded expiration are deleted and reported as missing.
func (c *Cache) GetOfflineData(ctx context.Context, key string, dest any) bool {
	var record offlineRecord
	if !c.Get(ctx, OfflineKey(key), &record) {
		return false
	}

	if record.Timestamp > 0 && record.Expiration > 0 {
		if time.Now().Unix()-record.Timestamp > record.Expiration {
			c.Delete(ctx, OfflineKey(key))
			return false
		}
	}

	if len(record.Data) == 0 {
		return false
	}
	return json.Unmarshal(record.Data, dest) == nil
}
