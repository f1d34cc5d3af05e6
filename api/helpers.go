package api

import (
	"fmt"
	"os"
	"strings"

	"openrag/internal/config"
	"openrag/internal/rag"

	"github.com/gin-gonic/gin"
)

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthCheck 健康检查
// @Summary 服务健康检查
// @Description 返回基础健康状态，可供监控探针使用
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func HealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "openrag",
		})
	}
}

// --- 环境变量辅助函数 ---

// getEnvList 读取逗号分隔的环境变量列表
func getEnvList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var res []string
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			res = append(res, v)
		}
	}
	return res
}

// stringInSlice 判断字符串是否存在于切片中
func stringInSlice(target string, list []string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

// defaultIfEmpty 返回非空列表或默认值
func defaultIfEmpty(list []string, def []string) []string {
	if len(list) == 0 {
		return def
	}
	return list
}

// --- 向量存储初始化 ---

// initVectorStore 按配置初始化向量存储
func initVectorStore(cfg *config.Config) (rag.VectorStore, error) {
	vsType := strings.ToLower(strings.TrimSpace(cfg.RAG.VectorStore.Type))

	if vsType == "qdrant" {
		qcfg := cfg.RAG.VectorStore.Qdrant
		if strings.TrimSpace(qcfg.Endpoint) == "" {
			return nil, fmt.Errorf("未配置 Qdrant endpoint")
		}
		return rag.NewQdrantStore(rag.QdrantOptions{
			Endpoint:        qcfg.Endpoint,
			APIKey:          qcfg.APIKey,
			Collection:      rag.CollectionName,
			VectorDimension: qcfg.VectorDimension,
			Distance:        qcfg.Distance,
			TimeoutSeconds:  qcfg.TimeoutSeconds,
		})
	}

	return rag.NewBoltStore(cfg.RAG.PersistDir)
}
