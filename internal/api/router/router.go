// Package router 注册HTTP路由并完成请求绑定
package router

import (
	"context"
	"errors"

	"ai-interview-go/internal/api/handler"
	"ai-interview-go/internal/config"
	"ai-interview-go/internal/interview"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/hertz-contrib/keyauth"
)

// RegisterRoutes 注册API路由
func RegisterRoutes(
	h *server.Hertz,
	cfg *config.Config,
	resumeHandler *handler.ResumeHandler,
	modelHandler *handler.ModelHandler,
	interviewHandler *handler.InterviewHandler,
) {
	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")
	if cfg.Auth.Enabled && cfg.Auth.APIKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return key == cfg.Auth.APIKey, nil
			}),
		))
	}

	registerResumeRoutes(api, resumeHandler)
	registerModelRoutes(api, modelHandler)
	registerInterviewRoutes(api, interviewHandler)
}

func registerResumeRoutes(api *route.RouterGroup, resumeHandler *handler.ResumeHandler) {
	api.POST("/resume/upload", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
			return
		}
		sourceChannel := ctx.PostForm("source_channel")

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
			return
		}
		defer file.Close()

		resp, err := resumeHandler.HandleResumeUpload(c, file, fileHeader.Size, fileHeader.Filename, sourceChannel)
		if err != nil {
			ctx.JSON(resumeErrorStatus(err, consts.StatusInternalServerError), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/resume/:uuid/status", func(c context.Context, ctx *app.RequestContext) {
		resp, err := resumeHandler.HandleGetSubmissionStatus(c, ctx.Param("uuid"))
		if err != nil {
			ctx.JSON(resumeErrorStatus(err, consts.StatusNotFound), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/resume/:uuid/text", func(c context.Context, ctx *app.RequestContext) {
		text, err := resumeHandler.HandleGetParsedText(c, ctx.Param("uuid"))
		if err != nil {
			ctx.JSON(resumeErrorStatus(err, consts.StatusNotFound), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"parsed_text": text})
	})

	api.GET("/resume/:uuid/download", func(c context.Context, ctx *app.RequestContext) {
		url, err := resumeHandler.HandleGetResumeDownloadURL(c, ctx.Param("uuid"))
		if err != nil {
			ctx.JSON(resumeErrorStatus(err, consts.StatusNotFound), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"download_url": url})
	})
}

// resumeErrorStatus 存储降级时返回503，其余按各路由的默认状态码
func resumeErrorStatus(err error, fallback int) int {
	if errors.Is(err, handler.ErrStorageUnavailable) {
		return consts.StatusServiceUnavailable
	}
	return fallback
}

func registerModelRoutes(api *route.RouterGroup, modelHandler *handler.ModelHandler) {
	api.POST("/model/recommend", func(c context.Context, ctx *app.RequestContext) {
		var req handler.RecommendRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
			return
		}
		resp, err := modelHandler.HandleRecommend(&req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/model/quality", func(c context.Context, ctx *app.RequestContext) {
		var req handler.QualityRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
			return
		}
		ctx.JSON(consts.StatusOK, modelHandler.HandleQuality(&req))
	})

	api.POST("/model/insights", func(c context.Context, ctx *app.RequestContext) {
		var req handler.InsightsRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
			return
		}
		resp, err := modelHandler.HandleInsights(&req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/model/info", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, modelHandler.HandleModelInfo(c))
	})

	api.POST("/model/reload", func(c context.Context, ctx *app.RequestContext) {
		if err := modelHandler.HandleReload(c); err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"status": "reloaded"})
	})
}

func registerInterviewRoutes(api *route.RouterGroup, interviewHandler *handler.InterviewHandler) {
	api.POST("/interview/start", func(c context.Context, ctx *app.RequestContext) {
		var req handler.StartInterviewRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
			return
		}
		resp, err := interviewHandler.HandleStart(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/interview/:session_id/answer", func(c context.Context, ctx *app.RequestContext) {
		var req handler.AnswerRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
			return
		}
		resp, err := interviewHandler.HandleAnswer(c, ctx.Param("session_id"), &req)
		if err != nil {
			ctx.JSON(interviewErrorStatus(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/interview/:session_id/finish", func(c context.Context, ctx *app.RequestContext) {
		evaluation, err := interviewHandler.HandleFinish(c, ctx.Param("session_id"))
		if err != nil {
			ctx.JSON(interviewErrorStatus(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, evaluation)
	})

	api.GET("/interview/:session_id", func(c context.Context, ctx *app.RequestContext) {
		meta, err := interviewHandler.HandleGetSession(c, ctx.Param("session_id"))
		if err != nil {
			ctx.JSON(interviewErrorStatus(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, meta)
	})

	api.GET("/interview/:session_id/history", func(c context.Context, ctx *app.RequestContext) {
		history, err := interviewHandler.HandleGetHistory(c, ctx.Param("session_id"))
		if err != nil {
			ctx.JSON(interviewErrorStatus(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"messages": history})
	})

	api.GET("/interview/:session_id/evaluation", func(c context.Context, ctx *app.RequestContext) {
		evaluation, err := interviewHandler.HandleGetEvaluation(c, ctx.Param("session_id"))
		if err != nil {
			ctx.JSON(interviewErrorStatus(err), utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, evaluation)
	})
}

// interviewErrorStatus 把面试服务错误映射到HTTP状态码
func interviewErrorStatus(err error) int {
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		return consts.StatusNotFound
	case errors.Is(err, interview.ErrSessionFinished):
		return consts.StatusConflict
	default:
		return consts.StatusInternalServerError
	}
}
