package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"loomchat/api/internal/config"
)

// LoginThrottle bounds login attempts per client IP and email within a
// sliding window, backed by a redis counter with a TTL. If redis is down the
// request passes through unthrottled.
func LoginThrottle(cfg *config.AppConfig, cache *redis.Client, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := peekEmail(c)
		key := throttleKey(c.ClientIP(), email)

		count, err := cache.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.Warn().Err(err).Msg("login throttle unavailable")
			c.Next()
			return
		}
		if count == 1 {
			if err := cache.Expire(c.Request.Context(), key, cfg.Security.LoginWindow).Err(); err != nil {
				log.Warn().Err(err).Msg("login throttle expire failed")
			}
		}

		if count > int64(cfg.Security.LoginMaxAttempts) {
			log.Warn().
				Str("client_ip", c.ClientIP()).
				Int64("attempts", count).
				Msg("login throttled")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many attempts, please try again later",
			})
			return
		}

		c.Next()
	}
}

// peekLimit bounds how much of the body is inspected for the email field; a
// well-formed login payload fits with plenty of room.
const peekLimit = 1 << 16

// replayBody stitches the peeked prefix back in front of the unread
// remainder so the downstream handler reads the original body in full.
type replayBody struct {
	io.Reader
	io.Closer
}

// peekEmail reads the email field from the JSON body without consuming it
// for the downstream handler.
func peekEmail(c *gin.Context) string {
	rest := c.Request.Body
	peeked, err := io.ReadAll(io.LimitReader(rest, peekLimit))
	if err != nil {
		return ""
	}
	c.Request.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(peeked), rest),
		Closer: rest,
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(peeked, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func throttleKey(ip string, email string) string {
	sum := sha256.Sum256([]byte(email))
	return fmt.Sprintf("throttle:login:%s:%s", ip, hex.EncodeToString(sum[:8]))
}
