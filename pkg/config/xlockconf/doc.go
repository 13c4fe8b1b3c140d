// Package xlockconf 提供分布式锁的配置加载。
//
// 基于 koanf 实现，支持 YAML/JSON 文件（按扩展名识别）与原始字节
// （K8s ConfigMap 等场景）两种来源。加载后的配置经 Validate 校验，
// 再由 ProviderOptions 转换为锁提供者的选项。
//
// 配置结构：
//
//	key_prefix: "lock:"
//	expiry: 30s
//	retry_delay: 200ms
//	max_attempts: 32
//	backend: mongo        # memory | mongo | redis | etcd
//	mongo:
//	  uri: "mongodb://localhost:27017"
//	  database: "locks"
//	  collection: "locks"
//	redis:
//	  addr: "localhost:6379"
//	  password: ""
//	  db: 0
//	etcd:
//	  endpoints: ["localhost:2379"]
//	  dial_timeout: 5s
//
// 使用示例：
//
//	cfg, err := xlockconf.Load("lock.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	provider, err := xmutex.NewProvider(store, cfg.ProviderOptions()...)
package xlockconf
