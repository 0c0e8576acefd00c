package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// InterviewModulePrefix 面试模块
	InterviewModulePrefix = "interview"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"
	// ModelModulePrefix 模型模块
	ModelModulePrefix = "model"

	// EntityHistory 会话历史实体
	EntityHistory = "history"
	// EntitySession 会话元数据实体
	EntitySession = "session"
	// EntityMD5ToUUID MD5到UUID的映射实体
	EntityMD5ToUUID = "md5_to_uuid"
	// EntityMeta 元数据实体
	EntityMeta = "meta"

	// KeyInterviewHistory 面试会话消息历史 (LIST, 元素为JSON消息)
	// 格式: app:interview:history:{sessionID}
	KeyInterviewHistory = AppPrefix + ":" + InterviewModulePrefix + ":" + EntityHistory + ":%s"

	// KeyInterviewSession 面试会话元数据 (HASH)
	// 格式: app:interview:session:{sessionID}
	KeyInterviewSession = AppPrefix + ":" + InterviewModulePrefix + ":" + EntitySession + ":%s"

	// KeyFileMD5ToSubmissionUUID 文件MD5到SubmissionUUID的映射，用于上传去重 (STRING)
	// 格式: app:file:md5_to_uuid:{md5}
	KeyFileMD5ToSubmissionUUID = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToUUID + ":%s"

	// KeyModelMeta 当前已加载模型的元数据缓存 (STRING, JSON)
	// 格式: app:model:meta
	KeyModelMeta = AppPrefix + ":" + ModelModulePrefix + ":" + EntityMeta
)
