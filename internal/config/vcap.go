package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
)

// FallbackVCAP используется, когда VCAP_SERVICES не задан (локальный запуск).
const FallbackVCAP = `{
  "user-provided": [
    {
      "name": "my-fallback-postgres-service",
      "credentials": {
        "host": "localhost",
        "port": 5432,
        "name": "postgres",
        "username": "postgres",
        "password": "password"
      }
    }
  ]
}`

// DBCredentials — параметры подключения к БД из VCAP_SERVICES.
type DBCredentials struct {
	Service  string `json:"service"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Name     string `json:"name"`
	User     string `json:"user"`
	Password string `json:"-"`
}

// DSN возвращает DSN PostgreSQL.
func (c DBCredentials) DSN() string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	return u.String()
}

// Target — адрес хранилища без секретов, для статуса и логов.
func (c DBCredentials) Target() string {
	return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Name)
}

type vcapService struct {
	Name        string         `json:"name"`
	Credentials map[string]any `json:"credentials"`
}

// ParseVCAP извлекает credentials из документа VCAP_SERVICES.
//
// Берётся первый сервис с блоком credentials. Метки сервисов
// обходятся в алфавитном порядке, чтобы выбор был детерминированным.
// Имя БД читается из "name", затем из "database".
func ParseVCAP(doc string) (DBCredentials, error) {
	var services map[string][]vcapService
	if err := json.Unmarshal([]byte(doc), &services); err != nil {
		return DBCredentials{}, fmt.Errorf("%w: parse VCAP_SERVICES: %w", ErrConfigurationInvalid, err)
	}

	labels := make([]string, 0, len(services))
	for label := range services {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		for _, svc := range services[label] {
			if svc.Credentials == nil {
				continue
			}
			return credentialsFrom(svc)
		}
	}

	return DBCredentials{}, fmt.Errorf("%w: no credentials in VCAP_SERVICES", ErrConfigurationInvalid)
}

func credentialsFrom(svc vcapService) (DBCredentials, error) {
	c := svc.Credentials
	creds := DBCredentials{
		Service:  svc.Name,
		Host:     stringField(c, "host"),
		Name:     stringField(c, "name"),
		User:     stringField(c, "username"),
		Password: stringField(c, "password"),
	}
	if creds.Name == "" {
		creds.Name = stringField(c, "database")
	}

	port, err := portField(c["port"])
	if err != nil {
		return DBCredentials{}, fmt.Errorf("%w: service %q: %w", ErrConfigurationInvalid, svc.Name, err)
	}
	creds.Port = port

	if creds.Host == "" {
		return DBCredentials{}, fmt.Errorf("%w: service %q: host is required", ErrConfigurationInvalid, svc.Name)
	}
	return creds, nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// portField принимает порт числом или строкой. Без порта — 5432.
func portField(v any) (int, error) {
	switch p := v.(type) {
	case nil:
		return 5432, nil
	case float64:
		return int(p), nil
	case string:
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid port %q", p)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid port %v", v)
	}
}
