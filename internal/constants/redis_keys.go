package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// AuthModulePrefix 认证模块
	AuthModulePrefix = "auth"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"

	// EntityToken API令牌实体
	EntityToken = "token"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"

	// KeyAPIToken 登录签发的API令牌 (STRING, 值为 userID:userType)
	// 格式: app:auth:token:{token}
	KeyAPIToken = AppPrefix + ":" + AuthModulePrefix + ":" + EntityToken + ":%s"

	// KeyRawFileMD5Set 原始简历文件MD5集合，用于快速去重 (SET)
	// 格式: app:file:dedup_set:raw
	KeyRawFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet + ":raw"

	// KeyParsedTextMD5Set 解析文本MD5集合 (SET)
	// 格式: app:file:dedup_set:text
	KeyParsedTextMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet + ":text"
)
