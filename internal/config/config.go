package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Queue  QueueConfig  `mapstructure:"queue"`
	AI     AIConfig     `mapstructure:"ai"`
	RAG    RagConfig    `mapstructure:"rag"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// RedisConfig Redis 配置（asynq 任务队列使用）
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueueConfig 后台摄取任务执行配置
type QueueConfig struct {
	// 执行模式: asynq(Redis 分布式队列), local(进程内协程池)
	Type        string `mapstructure:"type"`
	Concurrency int    `mapstructure:"concurrency"`
}

// AIConfig 外部模型服务配置（OpenAI 兼容接口，支持 OpenRouter 等）
type AIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	LLMModel   string `mapstructure:"llm_model"`
	EmbedModel string `mapstructure:"embed_model"`
	MaxTokens  int    `mapstructure:"max_tokens"`
}

// RagConfig 摄取与检索配置
type RagConfig struct {
	UploadDir    string            `mapstructure:"upload_dir"`
	PersistDir   string            `mapstructure:"persist_dir"`
	ChunkSize    int               `mapstructure:"chunk_size"`
	ChunkOverlap int               `mapstructure:"chunk_overlap"`
	TopK         int               `mapstructure:"top_k"`
	VectorStore  VectorStoreConfig `mapstructure:"vector_store"`
}

// VectorStoreConfig 向量存储配置
type VectorStoreConfig struct {
	Type   string       `mapstructure:"type"` // local(bbolt 本地持久化), qdrant
	Qdrant QdrantConfig `mapstructure:"qdrant"`
}

// QdrantConfig Qdrant 外部向量数据库配置
type QdrantConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	APIKey          string `mapstructure:"api_key"`
	VectorDimension int    `mapstructure:"vector_dimension"`
	Distance        string `mapstructure:"distance"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 环境变量优先级高于配置文件
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_RAG_UPLOAD_DIR

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 注册缺省值，保证配置文件缺项时服务仍可启动
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("queue.type", "local")
	v.SetDefault("queue.concurrency", 4)

	v.SetDefault("ai.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.llm_model", "meta-llama/llama-3.3-70b-instruct")
	v.SetDefault("ai.embed_model", "text-embedding-3-small")
	v.SetDefault("ai.max_tokens", 1024)

	v.SetDefault("rag.upload_dir", "./uploads")
	v.SetDefault("rag.persist_dir", "./storage")
	v.SetDefault("rag.chunk_size", 1024)
	v.SetDefault("rag.chunk_overlap", 50)
	v.SetDefault("rag.top_k", 5)
	v.SetDefault("rag.vector_store.type", "local")
}
