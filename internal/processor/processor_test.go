package processor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ai-interview-go/internal/config"
	"ai-interview-go/internal/constants"
	"ai-interview-go/internal/parser"
	"ai-interview-go/internal/recommend"
	"ai-interview-go/internal/storage"
	"ai-interview-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeObjectStore struct {
	fileData    []byte
	getErr      error
	parsedText  string
	uploadErr   error
	uploadCalls int
}

func (f *fakeObjectStore) GetResumeFile(ctx context.Context, objectName string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.fileData, nil
}

func (f *fakeObjectStore) UploadParsedText(ctx context.Context, submissionUUID, text string) (string, error) {
	f.uploadCalls++
	f.parsedText = text
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return submissionUUID + "/parsed.txt", nil
}

type fakeSubmissionStore struct {
	submissions map[string]*models.ResumeSubmission
	candidates  map[string]*models.Candidate
	educations  []models.CandidateEducation
	skills      []models.CandidateSkill
	statuses    []string
	failedMsg   string
}

func newFakeSubmissionStore(uuids ...string) *fakeSubmissionStore {
	f := &fakeSubmissionStore{
		submissions: make(map[string]*models.ResumeSubmission),
		candidates:  make(map[string]*models.Candidate),
	}
	for _, id := range uuids {
		f.submissions[id] = &models.ResumeSubmission{
			SubmissionUUID:   id,
			ProcessingStatus: constants.StatusPendingOCR,
		}
	}
	return f
}

func (f *fakeSubmissionStore) GetResumeSubmission(ctx context.Context, submissionUUID string) (*models.ResumeSubmission, error) {
	sub, ok := f.submissions[submissionUUID]
	if !ok {
		return nil, errors.New("record not found")
	}
	return sub, nil
}

func (f *fakeSubmissionStore) UpdateSubmissionStatus(ctx context.Context, submissionUUID, status string) error {
	f.statuses = append(f.statuses, status)
	if sub, ok := f.submissions[submissionUUID]; ok {
		sub.ProcessingStatus = status
	}
	return nil
}

func (f *fakeSubmissionStore) MarkSubmissionFailed(ctx context.Context, submissionUUID, status, errMsg string) error {
	f.statuses = append(f.statuses, status)
	f.failedMsg = errMsg
	if sub, ok := f.submissions[submissionUUID]; ok {
		sub.ProcessingStatus = status
		sub.ErrorMessage = errMsg
	}
	return nil
}

func (f *fakeSubmissionStore) SaveParsedProfile(ctx context.Context, submissionUUID string, profile datatypes.JSON, parsedTextPath, status string) error {
	f.statuses = append(f.statuses, status)
	if sub, ok := f.submissions[submissionUUID]; ok {
		sub.LLMParsedProfile = profile
		sub.ParsedTextPathOSS = parsedTextPath
		sub.ProcessingStatus = status
	}
	return nil
}

func (f *fakeSubmissionStore) SaveQualityAssessment(ctx context.Context, submissionUUID, category string, score float64, detail datatypes.JSON, status string) error {
	f.statuses = append(f.statuses, status)
	if sub, ok := f.submissions[submissionUUID]; ok {
		sub.QualityCategory = category
		sub.QualityScore = &score
		sub.QualityDetail = detail
		sub.ProcessingStatus = status
	}
	return nil
}

func (f *fakeSubmissionStore) UpsertCandidate(ctx context.Context, candidate *models.Candidate) error {
	if existing, ok := f.candidates[candidate.Email]; ok {
		existing.Name = candidate.Name
		return nil
	}
	cpy := *candidate
	f.candidates[candidate.Email] = &cpy
	return nil
}

func (f *fakeSubmissionStore) GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	candidate, ok := f.candidates[email]
	if !ok {
		return nil, errors.New("record not found")
	}
	return candidate, nil
}

func (f *fakeSubmissionStore) LinkSubmissionCandidate(ctx context.Context, submissionUUID, candidateID string) error {
	if sub, ok := f.submissions[submissionUUID]; ok {
		sub.CandidateID = &candidateID
	}
	return nil
}

func (f *fakeSubmissionStore) ReplaceCandidateDetails(ctx context.Context, candidateID string, educations []models.CandidateEducation, skills []models.CandidateSkill) error {
	f.educations = educations
	f.skills = skills
	return nil
}

type fakeDedupStore struct {
	removed []string
}

func (f *fakeDedupStore) RemoveFileMD5(ctx context.Context, fileMD5 string) error {
	f.removed = append(f.removed, fileMD5)
	return nil
}

type fakeExtractor struct {
	text     string
	err      error
	mimeType string
}

func (f *fakeExtractor) ExtractText(ctx context.Context, fileData []byte, mimeType string) (string, error) {
	f.mimeType = mimeType
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeProfileParser struct {
	profile *parser.ResumeProfile
	err     error
}

func (f *fakeProfileParser) Parse(ctx context.Context, extractedText string) (*parser.ResumeProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type fakeQualityAnalyzer struct {
	result recommend.QualityResult
}

func (f *fakeQualityAnalyzer) AnalyzeResumeQuality(resumeText string) recommend.QualityResult {
	return f.result
}

func sampleProfile() *parser.ResumeProfile {
	return &parser.ResumeProfile{
		PersonalInfo: parser.PersonalInfo{
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     "jane@example.com",
		},
		Skills: []parser.SkillEntry{{Name: "Python"}},
	}
}

func newTestProcessor(objects *fakeObjectStore, db *fakeSubmissionStore, dedup *fakeDedupStore, extractor *fakeExtractor, pp *fakeProfileParser, qa *fakeQualityAnalyzer) *Processor {
	return NewProcessor(objects, db, dedup, extractor, pp, qa, config.RabbitMQConfig{
		ResumeEventsExchange: "resume.events",
		UploadedRoutingKey:   "resume.uploaded",
		RawResumeQueue:       "raw_resume_queue",
	})
}

// fakeMessageQueue 记录拓扑声明与消费者参数
type fakeMessageQueue struct {
	exchanges []string
	queues    []string
	bindings  []string

	consumerQueue    string
	consumerPrefetch int
	consumerWorkers  int
}

func (f *fakeMessageQueue) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	return nil
}

func (f *fakeMessageQueue) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	f.exchanges = append(f.exchanges, exchangeName)
	return nil
}

func (f *fakeMessageQueue) EnsureQueue(queueName string, durable bool) error {
	f.queues = append(f.queues, queueName)
	return nil
}

func (f *fakeMessageQueue) BindQueue(queueName, exchangeName, routingKey string) error {
	f.bindings = append(f.bindings, exchangeName+":"+queueName+":"+routingKey)
	return nil
}

func (f *fakeMessageQueue) StartConsumer(queueName string, prefetchCount, workers int, handler func([]byte) bool) (chan<- struct{}, error) {
	f.consumerQueue = queueName
	f.consumerPrefetch = prefetchCount
	f.consumerWorkers = workers
	return make(chan struct{}), nil
}

func (f *fakeMessageQueue) Close() error { return nil }

func TestStartDeclaresTopologyAndWorkerPool(t *testing.T) {
	proc := NewProcessor(&fakeObjectStore{}, newFakeSubmissionStore(), &fakeDedupStore{},
		&fakeExtractor{}, &fakeProfileParser{}, &fakeQualityAnalyzer{}, config.RabbitMQConfig{
			ResumeEventsExchange: "resume.events",
			UploadedRoutingKey:   "resume.uploaded",
			RawResumeQueue:       "raw_resume_queue",
			PrefetchCount:        20,
			ConsumerWorkers:      4,
		})

	mq := &fakeMessageQueue{}
	stop, err := proc.Start(mq)
	require.NoError(t, err)
	require.NotNil(t, stop)

	assert.Equal(t, []string{"resume.events"}, mq.exchanges)
	assert.Equal(t, []string{"raw_resume_queue"}, mq.queues)
	assert.Equal(t, []string{"resume.events:raw_resume_queue:resume.uploaded"}, mq.bindings)
	assert.Equal(t, "raw_resume_queue", mq.consumerQueue)
	assert.Equal(t, 20, mq.consumerPrefetch)
	assert.Equal(t, 4, mq.consumerWorkers)
}

func TestStartDefaultsWorkerCount(t *testing.T) {
	proc := newTestProcessor(&fakeObjectStore{}, newFakeSubmissionStore(), &fakeDedupStore{},
		&fakeExtractor{}, &fakeProfileParser{}, &fakeQualityAnalyzer{})

	mq := &fakeMessageQueue{}
	_, err := proc.Start(mq)
	require.NoError(t, err)
	assert.Equal(t, 5, mq.consumerPrefetch)
	assert.Equal(t, 1, mq.consumerWorkers)
}

func uploadMessage() *storage.ResumeUploadMessage {
	return &storage.ResumeUploadMessage{
		SubmissionUUID:      "sub-1",
		OriginalFilename:    "resume.pdf",
		OriginalFilePathOSS: "sub-1/original.pdf",
		RawFileMD5:          "abc123",
	}
}

func TestProcessHappyPath(t *testing.T) {
	objects := &fakeObjectStore{fileData: []byte("%PDF")}
	db := newFakeSubmissionStore("sub-1")
	dedup := &fakeDedupStore{}
	extractor := &fakeExtractor{text: "Jane Doe, python developer"}
	pp := &fakeProfileParser{profile: sampleProfile()}
	qa := &fakeQualityAnalyzer{result: recommend.QualityResult{
		MatchCategory: "High",
		Score:         78.5,
		Probabilities: map[string]float64{"High": 78.5},
	}}

	proc := newTestProcessor(objects, db, dedup, extractor, pp, qa)
	require.NoError(t, proc.Process(context.Background(), uploadMessage()))

	// 状态按阶段顺序推进
	assert.Equal(t, []string{
		constants.StatusOCRCompleted,
		constants.StatusPendingParsing,
		constants.StatusParsingCompleted,
		constants.StatusQualityAssessed,
	}, db.statuses)

	sub := db.submissions["sub-1"]
	assert.Equal(t, constants.StatusQualityAssessed, sub.ProcessingStatus)
	assert.Equal(t, "High", sub.QualityCategory)
	assert.Equal(t, "sub-1/parsed.txt", sub.ParsedTextPathOSS)
	assert.Equal(t, "application/pdf", extractor.mimeType)
	assert.Equal(t, "Jane Doe, python developer", objects.parsedText)

	// 候选人已按邮箱落库并关联
	require.NotNil(t, sub.CandidateID)
	candidate := db.candidates["jane@example.com"]
	require.NotNil(t, candidate)
	assert.Equal(t, candidate.CandidateID, *sub.CandidateID)
	assert.Equal(t, "Jane Doe", candidate.Name)
	require.Len(t, db.skills, 1)
	assert.Equal(t, "Python", db.skills[0].Name)
	assert.Equal(t, candidate.CandidateID, db.skills[0].CandidateID)

	// 成功路径不回滚MD5
	assert.Empty(t, dedup.removed)
}

func TestProcessOCRFailure(t *testing.T) {
	objects := &fakeObjectStore{fileData: []byte("%PDF")}
	db := newFakeSubmissionStore("sub-1")
	extractor := &fakeExtractor{err: errors.New("ocr service unavailable")}

	proc := newTestProcessor(objects, db, &fakeDedupStore{}, extractor, &fakeProfileParser{}, &fakeQualityAnalyzer{})
	err := proc.Process(context.Background(), uploadMessage())
	assert.ErrorIs(t, err, ErrOCRExtractFailed)
}

func TestProcessUnknownSubmission(t *testing.T) {
	proc := newTestProcessor(&fakeObjectStore{}, newFakeSubmissionStore(), &fakeDedupStore{}, &fakeExtractor{}, &fakeProfileParser{}, &fakeQualityAnalyzer{})
	err := proc.Process(context.Background(), uploadMessage())
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestProcessSkipsCandidateWithoutEmail(t *testing.T) {
	profile := sampleProfile()
	profile.PersonalInfo.Email = "  "

	objects := &fakeObjectStore{fileData: []byte("%PDF")}
	db := newFakeSubmissionStore("sub-1")
	proc := newTestProcessor(objects, db, &fakeDedupStore{}, &fakeExtractor{text: "text"}, &fakeProfileParser{profile: profile}, &fakeQualityAnalyzer{})

	require.NoError(t, proc.Process(context.Background(), uploadMessage()))
	assert.Nil(t, db.submissions["sub-1"].CandidateID)
	assert.Empty(t, db.candidates)
}

func TestHandleDeliveryAcksAndRollsBackOnFailure(t *testing.T) {
	objects := &fakeObjectStore{getErr: errors.New("object missing")}
	db := newFakeSubmissionStore("sub-1")
	dedup := &fakeDedupStore{}
	proc := newTestProcessor(objects, db, dedup, &fakeExtractor{}, &fakeProfileParser{}, &fakeQualityAnalyzer{})

	body, err := json.Marshal(uploadMessage())
	require.NoError(t, err)

	// 失败已落库，消息仍应ack避免反复重投
	assert.True(t, proc.HandleDelivery(body))
	assert.Equal(t, constants.StatusProcessingFailed, db.submissions["sub-1"].ProcessingStatus)
	assert.NotEmpty(t, db.failedMsg)
	assert.Equal(t, []string{"abc123"}, dedup.removed)
}

func TestHandleDeliveryDropsMalformedMessage(t *testing.T) {
	db := newFakeSubmissionStore("sub-1")
	proc := newTestProcessor(&fakeObjectStore{}, db, &fakeDedupStore{}, &fakeExtractor{}, &fakeProfileParser{}, &fakeQualityAnalyzer{})

	assert.True(t, proc.HandleDelivery([]byte("not json")))
	assert.True(t, proc.HandleDelivery([]byte(`{"submission_uuid": ""}`)))
	assert.Empty(t, db.statuses)
}

func TestMimeTypeForFilename(t *testing.T) {
	assert.Equal(t, "application/pdf", mimeTypeForFilename("a.PDF"))
	assert.Equal(t, "image/jpeg", mimeTypeForFilename("photo.jpeg"))
	assert.Equal(t, "application/octet-stream", mimeTypeForFilename("noext"))
}
