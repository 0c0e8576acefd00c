package recommend

import "errors"

// 定义基础错误类型。
// 这些错误只在工件加载与热更新路径上返回，
// 三个推理操作对调用方永不抛错，只做降级。
var (
	ErrArtifactNotLoaded  = errors.New("模型工件未加载")
	ErrArtifactLoadFailed = errors.New("加载模型工件失败")
)
