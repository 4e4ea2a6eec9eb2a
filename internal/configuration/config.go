package configuration

import (
	"encoding/json"
	"os"
)

type MongoConfig struct {
	Uri                     string `json:"uri"`
	Database                string `json:"database"`
	UsersCollection         string `json:"usersCollection"`
	ConversationsCollection string `json:"conversationsCollection"`
	MessagesCollection      string `json:"messagesCollection"`
	SocketRoute             string `json:"socketRoute"`
}

type ServerConfig struct {
	AppPort    int `json:"app_port"`
	SocketPort int `json:"socket_port"`
}

type AuthConfig struct {
	JwtSecret string `json:"jwt_secret"`
}

type CorsConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

type Config struct {
	ChatDatabase MongoConfig  `json:"mongo"`
	Server       ServerConfig `json:"server"`
	Auth         AuthConfig   `json:"auth"`
	Cors         CorsConfig   `json:"cors"`
}

func LoadConfig(config_path string) (*Config, error) {
	file, err := os.ReadFile(config_path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = json.Unmarshal(file, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}

// ConfigPath resolves the config file location, preferring the
// CHAT_SERVER_CONFIG environment variable.
func ConfigPath() string {
	if path := os.Getenv("CHAT_SERVER_CONFIG"); path != "" {
		return path
	}
	return "config/config.dev.json"
}
