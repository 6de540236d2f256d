package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	API      API
	Realtime Realtime
	Location Location
	Server   Server
	DB       DB
}

type API struct {
	BaseURL string
	Timeout time.Duration
}

type Realtime struct {
	URL string
}

// Location mirrors the options recognized by the position watch.
type Location struct {
	HighAccuracy      bool
	MinDistanceMeters float64
	MinInterval       time.Duration
	FastestInterval   time.Duration
	Timeout           time.Duration
	MaxFixAge         time.Duration
	RadiusKm          int
}

type Server struct {
	Port      int
	JWTSecret string
}

type DB struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

func Load(cfgPath string) (*Config, error) {
	f, err := os.Open(cfgPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		lineNo  int
		section string
		cfg     = defaults()
		seenAPI = make(map[string]bool)
		seenRT  = make(map[string]bool)
		seenLoc = make(map[string]bool)
		seenSrv = make(map[string]bool)
		seenDB  = make(map[string]bool)

		requiredAPI = []string{"base_url"}
		requiredRT  = []string{"url"}
		requiredSrv = []string{"port", "jwt_secret"}
		requiredDB  = []string{"host", "port", "user", "password", "database"}
	)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			sec := strings.TrimSuffix(line, ":")
			switch sec {
			case "api", "realtime", "location", "server", "database":
				section = sec
			default:
				return nil, fmt.Errorf("line %d: unknown section %s", lineNo, sec)
			}
			continue
		}

		if section == "" {
			return nil, fmt.Errorf("line %d: key outside of any section", lineNo)
		}

		k, v, ok := splitKV(line)
		if !ok {
			return nil, fmt.Errorf("line %d: expected 'key: value'", lineNo)
		}

		v = trimQuotes(v)
		switch section {
		case "api":
			if seenAPI[k] {
				return nil, fmt.Errorf("line %d: duplicate key %q in [api]", lineNo, k)
			}
			seenAPI[k] = true
			switch k {
			case "base_url":
				cfg.API.BaseURL = strings.TrimSuffix(v, "/")
			case "timeout_seconds":
				secs, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: api.timeout_seconds must be int: %w", lineNo, err)
				}
				cfg.API.Timeout = time.Duration(secs) * time.Second
			default:
				return nil, fmt.Errorf("line %d: unknown field for [api]: %q", lineNo, k)
			}

		case "realtime":
			if seenRT[k] {
				return nil, fmt.Errorf("line %d: duplicate key %q in [realtime]", lineNo, k)
			}
			seenRT[k] = true
			switch k {
			case "url":
				cfg.Realtime.URL = v
			default:
				return nil, fmt.Errorf("line %d: unknown field for [realtime]: %q", lineNo, k)
			}

		case "location":
			if seenLoc[k] {
				return nil, fmt.Errorf("line %d: duplicate key %q in [location]", lineNo, k)
			}
			seenLoc[k] = true
			switch k {
			case "high_accuracy":
				b, err := strconv.ParseBool(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: location.high_accuracy must be bool: %w", lineNo, err)
				}
				cfg.Location.HighAccuracy = b
			case "min_distance_m":
				m, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: location.min_distance_m must be number: %w", lineNo, err)
				}
				cfg.Location.MinDistanceMeters = m
			case "min_interval_ms":
				d, err := millis(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: location.min_interval_ms: %w", lineNo, err)
				}
				cfg.Location.MinInterval = d
			case "fastest_interval_ms":
				d, err := millis(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: location.fastest_interval_ms: %w", lineNo, err)
				}
				cfg.Location.FastestInterval = d
			case "timeout_ms":
				d, err := millis(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: location.timeout_ms: %w", lineNo, err)
				}
				cfg.Location.Timeout = d
			case "max_fix_age_ms":
				d, err := millis(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: location.max_fix_age_ms: %w", lineNo, err)
				}
				cfg.Location.MaxFixAge = d
			case "radius_km":
				r, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: location.radius_km must be int: %w", lineNo, err)
				}
				cfg.Location.RadiusKm = r
			default:
				return nil, fmt.Errorf("line %d: unknown field for [location]: %q", lineNo, k)
			}

		case "server":
			if seenSrv[k] {
				return nil, fmt.Errorf("line %d: duplicate key %q in [server]", lineNo, k)
			}
			seenSrv[k] = true
			switch k {
			case "port":
				p, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: server.port must be int: %w", lineNo, err)
				}
				cfg.Server.Port = p
			case "jwt_secret":
				cfg.Server.JWTSecret = v
			default:
				return nil, fmt.Errorf("line %d: unknown field for [server]: %q", lineNo, k)
			}

		case "database":
			if seenDB[k] {
				return nil, fmt.Errorf("line %d: duplicate key %q in [database]", lineNo, k)
			}
			seenDB[k] = true
			switch k {
			case "host":
				cfg.DB.Host = v
			case "port":
				p, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: database.port must be int: %w", lineNo, err)
				}
				cfg.DB.Port = p
			case "user":
				cfg.DB.User = v
			case "password":
				cfg.DB.Password = v
			case "database":
				cfg.DB.Name = v
			default:
				return nil, fmt.Errorf("line %d: unknown field for [database]: %q", lineNo, k)
			}
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan config: %w", err)
	}

	if err := ensureRequired(seenAPI, requiredAPI, "api"); err != nil {
		return nil, err
	}
	if err := ensureRequired(seenRT, requiredRT, "realtime"); err != nil {
		return nil, err
	}

	// server and database sections only matter when present (the client
	// never opens them); when declared they must be complete.
	if len(seenSrv) > 0 {
		if err := ensureRequired(seenSrv, requiredSrv, "server"); err != nil {
			return nil, err
		}
	}
	if len(seenDB) > 0 {
		if err := ensureRequired(seenDB, requiredDB, "database"); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		API: API{Timeout: 15 * time.Second},
		Location: Location{
			HighAccuracy:      true,
			MinDistanceMeters: 10,
			MinInterval:       5 * time.Second,
			FastestInterval:   2 * time.Second,
			Timeout:           15 * time.Second,
			MaxFixAge:         10 * time.Second,
			RadiusKm:          5,
		},
	}
}

func millis(v string) (time.Duration, error) {
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("must be milliseconds as int")
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func splitKV(line string) (key, val string, ok bool) {
	i := strings.IndexRune(line, ':')
	if i <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	val = strings.TrimSpace(line[i+1:])
	if key == "" || val == "" {
		return "", "", false
	}
	return key, val, true
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func ensureRequired(seen map[string]bool, required []string, section string) error {
	var missing []string
	for _, k := range required {
		if !seen[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required keys in [" + section + "]: " + strings.Join(missing, ", "))
	}
	return nil
}
