package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kisaanbot-be/internal/dto"
	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/internal/repository/contract"
	"kisaanbot-be/pkg/cropindex"
	"kisaanbot-be/pkg/orchestrator"
	"kisaanbot-be/pkg/scheduler"
	"kisaanbot-be/pkg/storage"
	"kisaanbot-be/pkg/whatsapp"
)

// Haryana districts offered in the paginated district picker.
var haryanaDistricts = []string{
	"Ambala", "Bhiwani", "Charkhi Dadri", "Faridabad", "Fatehabad",
	"Gurugram", "Hisar", "Jhajjar", "Jind", "Kaithal",
	"Karnal", "Kurukshetra", "Mahendragarh", "Nuh", "Palwal",
	"Panchkula", "Panipat", "Rewari", "Rohtak", "Sirsa",
	"Sonipat", "Yamunanagar",
}

// User-facing Hindi copy. Kept together so translators can review it in one
// place.
const (
	msgGreeting           = "नमस्कार किसान भाई/बहन, आपका स्वागत है। यहाँ आप फसल और मौसम से जुड़े सवाल पूछ सकते हैं।"
	msgAskLocation        = "मौसम जानने के लिए अपना लोकेशन भेजें।"
	msgAskCropName        = "कृपया फसल का नाम टाइप करें।"
	msgAskCropNameAgain   = "ठीक है, कृपया फसल का नाम फिर से बताइए।"
	msgCropNotRecognized  = "मुझे फसल का नाम पहचान नहीं आया। कृपया फसल का नाम फिर से बताएं।"
	msgPickAmbiguousCrop  = "आप किस फसल के बारे में पूछ रहे हैं? कृपया चुनें:"
	msgPickOptionAgain    = "कृपया विकल्प फिर से चुनें।"
	msgPickFromOptions    = "कृपया नीचे दिए गए विकल्पों में से एक चुनें।"
	msgPickYesNo          = "कृपया हाँ या नहीं चुनें।"
	msgAskProblem         = "कृपया फसल से जुड़ी अपनी समस्या या सवाल बताइए।"
	msgAddMoreDetail      = "कृपया अधिक विवरण जोड़ें।"
	msgProcessingWait     = "कृपया प्रतीक्षा करें, हम आपके अनुरोध पर कार्य कर रहे हैं।"
	msgResendQuery        = "कृपया अपनी समस्या/सवाल फिर से भेजें।"
	msgVarietiesMissing   = "माफ़ कीजिए, इस फसल के लिए किस्में और बुवाई का समय उपलब्ध नहीं है।"
	msgWeatherFailed      = "माफ़ कीजिए, मौसम की जानकारी अभी उपलब्ध नहीं है। कृपया थोड़ी देर बाद पुनः प्रयास करें।"
	msgAggregationFailed  = "तकनीकी कारण से विलंब/समस्या हो रही है। कृपया अपना सवाल केवल टेक्स्ट में फिर से भेजें।"
	msgAdviceTimeout      = "तकनीकी कारण से विलंब हो रहा है। कृपया थोड़ी देर बाद पुनः प्रयास करें।"
	msgAdviceFailed       = "कुछ तकनीकी समस्या आ गई है। कृपया थोड़ी देर बाद पुनः प्रयास करें।"
)

// Auto-process once this many inputs pile up unanswered.
const maxCollectedItems = 6

type IConversationService interface {
	// HandleMessage advances the user's dialog session with one inbound
	// message. Errors are swallowed into apology replies; the webhook always
	// acks.
	HandleMessage(ctx context.Context, phoneNumberID string, msg dto.InboundMessage)
	// HandleStatus records delivery receipts.
	HandleStatus(phoneNumberID string, status dto.MessageStatus)
}

type conversationService struct {
	sessions   contract.SessionRepository
	sender     whatsapp.Sender
	media      whatsapp.MediaFetcher
	blobs      storage.MediaStore
	resolver   *cropindex.Resolver
	aggregator IAggregatorService
	advisor    IAdviceService
	varieties  IVarietyService
	weather    IWeatherService
	publisher  IPublisherService
	sched      *scheduler.Scheduler
	log        logger.ILogger

	budget    time.Duration
	menuDelay time.Duration

	// Session access is last-writer-wins, so events for one user must never
	// interleave. Different users proceed independently.
	userMu    sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewConversationService(
	sessions contract.SessionRepository,
	sender whatsapp.Sender,
	media whatsapp.MediaFetcher,
	blobs storage.MediaStore,
	resolver *cropindex.Resolver,
	aggregator IAggregatorService,
	advisor IAdviceService,
	varieties IVarietyService,
	weather IWeatherService,
	publisher IPublisherService,
	sched *scheduler.Scheduler,
	log logger.ILogger,
	budget time.Duration,
	menuDelay time.Duration,
) IConversationService {
	return &conversationService{
		sessions:   sessions,
		sender:     sender,
		media:      media,
		blobs:      blobs,
		resolver:   resolver,
		aggregator: aggregator,
		advisor:    advisor,
		varieties:  varieties,
		weather:    weather,
		publisher:  publisher,
		sched:      sched,
		log:        log,
		budget:     budget,
		menuDelay:  menuDelay,
		userLocks:  make(map[string]*sync.Mutex),
	}
}

func (s *conversationService) lockUser(userID string) *sync.Mutex {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	lk, ok := s.userLocks[userID]
	if !ok {
		lk = &sync.Mutex{}
		s.userLocks[userID] = lk
	}
	return lk
}

func (s *conversationService) HandleMessage(ctx context.Context, phoneNumberID string, msg dto.InboundMessage) {
	userID := msg.From

	lk := s.lockUser(userID)
	lk.Lock()
	defer lk.Unlock()

	ctx, cancel := orchestrator.WithBudget(ctx, s.budget)
	defer cancel()

	interaction := msg.DecodeInteraction()

	// A new message cancels any delayed menu still pending for this user.
	s.sched.Cancel(userID)

	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		s.log.Error("conversation_service", "session load failed", map[string]interface{}{
			"user": userID, "error": err.Error(),
		})
		return
	}
	if session == nil {
		if session, err = s.createSession(ctx, userID); err != nil {
			return
		}
	}

	switch session.State {
	case entity.StateGreeting:
		s.sendText(ctx, phoneNumberID, userID, msgGreeting)
		s.sendWelcomeMenu(ctx, msg.ID, phoneNumberID, userID)
		s.patch(ctx, userID, entity.SessionPatch{State: entity.StatePtr(entity.StateAwaitingMenuChoice)})

	case entity.StateAwaitingMenuChoice:
		s.handleMenuChoice(ctx, phoneNumberID, msg, interaction)

	case entity.StateAwaitingWeatherLocation:
		s.handleWeatherLocation(ctx, phoneNumberID, msg)

	case entity.StateAwaitingDistrictName:
		s.handleDistrictChoice(ctx, phoneNumberID, msg, interaction, session)

	case entity.StateAwaitingCropName:
		s.handleCropName(ctx, phoneNumberID, msg)

	case entity.StateAwaitingCropConfirmation:
		s.handleCropConfirmation(ctx, phoneNumberID, msg, interaction, session)

	case entity.StateAwaitingAmbiguousCropChoice:
		s.handleAmbiguousChoice(ctx, phoneNumberID, msg, interaction, session)

	case entity.StateCollectingQuery:
		s.handleQueryCollection(ctx, phoneNumberID, msg, interaction)

	case entity.StateProcessingQuery:
		s.triggerProcessing(ctx, phoneNumberID, userID)

	default:
		s.resetToMenu(ctx, msg.ID, phoneNumberID, userID)
	}
}

func (s *conversationService) HandleStatus(phoneNumberID string, status dto.MessageStatus) {
	if status.Status != "delivered" && status.Status != "read" {
		return
	}
	s.log.Debug("conversation_service", "message status", map[string]interface{}{
		"message_id": status.ID, "recipient": status.RecipientID, "status": status.Status,
	})
}

func (s *conversationService) handleMenuChoice(ctx context.Context, phoneNumberID string, msg dto.InboundMessage, interaction dto.Interaction) {
	userID := msg.From
	if interaction.Kind != dto.InteractionList {
		s.resetToMenu(ctx, msg.ID, phoneNumberID, userID)
		return
	}

	if interaction.ID == string(entity.CategoryWeather) {
		s.patch(ctx, userID, entity.SessionPatch{State: entity.StatePtr(entity.StateAwaitingWeatherLocation)})
		if err := s.sender.RequestLocation(ctx, phoneNumberID, userID, msgAskLocation); err != nil {
			s.logSendError(userID, err)
		}
		return
	}

	category := entity.AdviceCategory(interaction.ID)
	s.patch(ctx, userID, entity.SessionPatch{
		CropAdviceCategory: entity.CategoryPtr(category),
		State:              entity.StatePtr(entity.StateAwaitingDistrictName),
		DistrictPage:       entity.IntPtr(0),
	})
	if err := s.sender.SendDistrictMenu(ctx, msg.ID, phoneNumberID, userID, haryanaDistricts, 0); err != nil {
		s.logSendError(userID, err)
	}
}

func (s *conversationService) handleWeatherLocation(ctx context.Context, phoneNumberID string, msg dto.InboundMessage) {
	userID := msg.From
	if msg.Type != "location" || msg.Location == nil {
		s.resetToMenu(ctx, msg.ID, phoneNumberID, userID)
		return
	}

	loc := entity.Location{Latitude: msg.Location.Latitude, Longitude: msg.Location.Longitude}
	s.patch(ctx, userID, entity.SessionPatch{Location: &loc})

	summary, err := s.weather.ForecastSummary(ctx, loc)
	if err != nil {
		s.log.Error("conversation_service", "weather lookup failed", map[string]interface{}{
			"user": userID, "error": err.Error(),
		})
		summary = msgWeatherFailed
	}
	s.sendText(ctx, phoneNumberID, userID, summary)

	s.finishCycle(ctx, userID, false)
	s.patch(ctx, userID, entity.SessionPatch{State: entity.StatePtr(entity.StateAwaitingMenuChoice)})
	s.scheduleWelcomeMenu(msg.ID, phoneNumberID, userID)
}

func (s *conversationService) handleDistrictChoice(ctx context.Context, phoneNumberID string, msg dto.InboundMessage, interaction dto.Interaction, session *entity.Session) {
	userID := msg.From

	switch {
	case interaction.Kind == dto.InteractionList && interaction.ID == whatsapp.RowDistrictPrev:
		page := session.DistrictPage - 1
		if page < 0 {
			page = 0
		}
		s.patch(ctx, userID, entity.SessionPatch{DistrictPage: entity.IntPtr(page)})
		if err := s.sender.SendDistrictMenu(ctx, msg.ID, phoneNumberID, userID, haryanaDistricts, page); err != nil {
			s.logSendError(userID, err)
		}
		return

	case interaction.Kind == dto.InteractionList && interaction.ID == whatsapp.RowDistrictNext:
		page := session.DistrictPage + 1
		s.patch(ctx, userID, entity.SessionPatch{DistrictPage: entity.IntPtr(page)})
		if err := s.sender.SendDistrictMenu(ctx, msg.ID, phoneNumberID, userID, haryanaDistricts, page); err != nil {
			s.logSendError(userID, err)
		}
		return
	}

	var district string
	switch {
	case interaction.Kind == dto.InteractionList && strings.HasPrefix(interaction.ID, whatsapp.RowDistrictPrefix):
		district = interaction.Title
	case msg.Type == "text" && msg.Text != nil:
		// Typed district names are accepted as-is.
		district = strings.TrimSpace(msg.Text.Body)
	}

	if district == "" {
		if err := s.sender.SendDistrictMenu(ctx, msg.ID, phoneNumberID, userID, haryanaDistricts, session.DistrictPage); err != nil {
			s.logSendError(userID, err)
		}
		return
	}

	s.patch(ctx, userID, entity.SessionPatch{
		District: entity.StrPtr(district),
		State:    entity.StatePtr(entity.StateAwaitingCropName),
	})
	s.sendText(ctx, phoneNumberID, userID, msgAskCropName)
}

func (s *conversationService) handleCropName(ctx context.Context, phoneNumberID string, msg dto.InboundMessage) {
	userID := msg.From
	if msg.Type != "text" || msg.Text == nil {
		s.sendText(ctx, phoneNumberID, userID, msgAskCropName)
		return
	}

	res, err := s.resolver.Resolve(ctx, msg.Text.Body)
	if err != nil {
		s.log.Error("conversation_service", "crop resolution failed", map[string]interface{}{
			"user": userID, "error": err.Error(),
		})
		s.sendText(ctx, phoneNumberID, userID, msgCropNotRecognized)
		return
	}

	switch res.Outcome {
	case cropindex.OutcomeAmbiguous:
		s.patch(ctx, userID, entity.SessionPatch{
			PendingCropOptions: &res.Options,
			State:              entity.StatePtr(entity.StateAwaitingAmbiguousCropChoice),
		})
		if err := s.sender.SendAmbiguousCropMenu(ctx, msg.ID, phoneNumberID, userID, msgPickAmbiguousCrop, res.Options); err != nil {
			s.logSendError(userID, err)
		}

	case cropindex.OutcomeResolved:
		s.patch(ctx, userID, entity.SessionPatch{
			PendingCrop:         entity.StrPtr(res.MasterName),
			PendingCropHi:       entity.StrPtr(res.HindiName),
			PendingCropExisting: entity.BoolPtr(res.IsExistingCrop),
			State:               entity.StatePtr(entity.StateAwaitingCropConfirmation),
		})
		if err := s.sender.SendCropConfirmationMenu(ctx, msg.ID, phoneNumberID, userID, res.HindiName); err != nil {
			s.logSendError(userID, err)
		}

	default:
		s.sendText(ctx, phoneNumberID, userID, msgCropNotRecognized)
	}
}

func (s *conversationService) handleCropConfirmation(ctx context.Context, phoneNumberID string, msg dto.InboundMessage, interaction dto.Interaction, session *entity.Session) {
	userID := msg.From

	if interaction.Kind != dto.InteractionButton {
		if session.PendingCropHi != "" {
			if err := s.sender.SendCropConfirmationMenu(ctx, msg.ID, phoneNumberID, userID, session.PendingCropHi); err != nil {
				s.logSendError(userID, err)
			}
			return
		}
		s.patch(ctx, userID, entity.SessionPatch{State: entity.StatePtr(entity.StateAwaitingCropName)})
		s.sendText(ctx, phoneNumberID, userID, msgAskCropName)
		return
	}

	switch interaction.ID {
	case whatsapp.ButtonCropConfirmNo:
		s.clearPendingCrop(ctx, userID, entity.StatePtr(entity.StateAwaitingCropName))
		s.sendText(ctx, phoneNumberID, userID, msgAskCropNameAgain)

	case whatsapp.ButtonCropConfirmYes:
		if session.PendingCrop == "" {
			s.patch(ctx, userID, entity.SessionPatch{State: entity.StatePtr(entity.StateAwaitingCropName)})
			s.sendText(ctx, phoneNumberID, userID, msgAskCropName)
			return
		}
		crop, cropHi, existing := session.PendingCrop, session.PendingCropHi, session.PendingCropExisting
		s.clearPendingCrop(ctx, userID, nil)
		s.continueAfterCropSelected(ctx, msg.ID, phoneNumberID, userID, crop, cropHi, existing)

	default:
		s.sendText(ctx, phoneNumberID, userID, msgPickYesNo)
	}
}

func (s *conversationService) handleAmbiguousChoice(ctx context.Context, phoneNumberID string, msg dto.InboundMessage, interaction dto.Interaction, session *entity.Session) {
	userID := msg.From
	if interaction.Kind != dto.InteractionButton {
		s.sendText(ctx, phoneNumberID, userID, msgPickFromOptions)
		return
	}

	var picked string
	for _, opt := range session.PendingCropOptions {
		if opt.ID == interaction.ID {
			picked = opt.Title
			break
		}
	}
	if picked == "" {
		s.sendText(ctx, phoneNumberID, userID, msgPickOptionAgain)
		return
	}

	s.clearPendingCrop(ctx, userID, nil)
	s.continueAfterCropSelected(ctx, msg.ID, phoneNumberID, userID, picked, picked, true)
}

func (s *conversationService) handleQueryCollection(ctx context.Context, phoneNumberID string, msg dto.InboundMessage, interaction dto.Interaction) {
	userID := msg.From

	switch msg.Type {
	case "text":
		if msg.Text != nil {
			s.appendQuery(ctx, userID, func(q *entity.QueryBundle) {
				q.Texts = append(q.Texts, msg.Text.Body)
			})
		}
	case "audio":
		if msg.Audio != nil {
			s.collectMedia(ctx, userID, msg.Audio, ".ogg", func(q *entity.QueryBundle, url string) {
				q.AudioRefs = append(q.AudioRefs, url)
			})
		}
	case "image":
		if msg.Image != nil {
			s.collectMedia(ctx, userID, msg.Image, ".jpg", func(q *entity.QueryBundle, url string) {
				q.ImageRefs = append(q.ImageRefs, url)
			})
		}
	}

	if interaction.Kind == dto.InteractionNone {
		session, err := s.sessions.Get(ctx, userID)
		if err != nil || session == nil {
			return
		}
		total := len(session.Query.Texts) + len(session.Query.AudioRefs) + len(session.Query.ImageRefs)
		if total >= maxCollectedItems {
			s.triggerProcessing(ctx, phoneNumberID, userID)
			return
		}
		if err := s.sender.SendQueryConfirmationMenu(ctx, msg.ID, phoneNumberID, userID); err != nil {
			s.logSendError(userID, err)
		}
		return
	}

	switch interaction.ID {
	case whatsapp.ButtonQueryContinue:
		s.sendText(ctx, phoneNumberID, userID, msgAddMoreDetail)
	case whatsapp.ButtonQueryDone:
		s.triggerProcessing(ctx, phoneNumberID, userID)
	}
}

// collectMedia downloads inbound media and re-hosts it under a
// per-session blob name, so the aggregation call can reference stable URIs.
func (s *conversationService) collectMedia(ctx context.Context, userID string, media *dto.MediaContent, ext string, appendRef func(*entity.QueryBundle, string)) {
	data, mimeType, err := s.media.DownloadByID(ctx, media.ID)
	if err != nil {
		s.log.Error("conversation_service", "media download failed", map[string]interface{}{
			"user": userID, "media_id": media.ID, "error": err.Error(),
		})
		return
	}
	if mimeType == "" {
		mimeType = media.MimeType
	}

	session, err := s.sessions.Get(ctx, userID)
	if err != nil || session == nil {
		return
	}

	count := session.UploadCount + 1
	blobName := fmt.Sprintf("%s_%s_%d%s", userID, session.SessionID, count, ext)
	url, err := s.blobs.Upload(ctx, blobName, data, mimeType)
	if err != nil {
		s.log.Error("conversation_service", "media upload failed", map[string]interface{}{
			"user": userID, "blob": blobName, "error": err.Error(),
		})
		return
	}

	query := session.Query
	appendRef(&query, url)
	s.patch(ctx, userID, entity.SessionPatch{
		Query:       &query,
		UploadCount: entity.IntPtr(count),
	})
}

func (s *conversationService) appendQuery(ctx context.Context, userID string, mutate func(*entity.QueryBundle)) {
	session, err := s.sessions.Get(ctx, userID)
	if err != nil || session == nil {
		return
	}
	query := session.Query
	mutate(&query)
	s.patch(ctx, userID, entity.SessionPatch{Query: &query})
}

func (s *conversationService) continueAfterCropSelected(ctx context.Context, messageID, phoneNumberID, userID, crop, cropHi string, isExisting bool) {
	session := s.patch(ctx, userID, entity.SessionPatch{
		Crop:           entity.StrPtr(crop),
		CropHi:         entity.StrPtr(cropHi),
		IsExistingCrop: entity.BoolPtr(isExisting),
	})

	if session != nil && session.CropAdviceCategory == entity.CategoryVariety {
		text, err := s.varieties.VarietiesResponse(ctx, crop)
		if err != nil || text == "" {
			if err != nil {
				s.log.Warn("conversation_service", "varieties lookup failed", map[string]interface{}{
					"user": userID, "crop": crop, "error": err.Error(),
				})
			}
			text = msgVarietiesMissing
		}
		s.sendText(ctx, phoneNumberID, userID, text)

		s.finishCycle(ctx, userID, false)
		s.patch(ctx, userID, entity.SessionPatch{State: entity.StatePtr(entity.StateAwaitingMenuChoice)})
		s.scheduleWelcomeMenu(messageID, phoneNumberID, userID)
		return
	}

	s.patch(ctx, userID, entity.SessionPatch{State: entity.StatePtr(entity.StateCollectingQuery)})
	s.sendText(ctx, phoneNumberID, userID, msgAskProblem)
}

func (s *conversationService) triggerProcessing(ctx context.Context, phoneNumberID, userID string) {
	s.patch(ctx, userID, entity.SessionPatch{State: entity.StatePtr(entity.StateProcessingQuery)})
	s.sendText(ctx, phoneNumberID, userID, msgProcessingWait)

	session, err := s.sessions.Get(ctx, userID)
	if err != nil || session == nil {
		s.sendText(ctx, phoneNumberID, userID, msgAdviceFailed)
		return
	}

	agg := s.aggregator.Aggregate(ctx, session.Crop, session.Query)
	switch agg.Status {
	case AggregationMismatch:
		// Off-crop inputs keep the user in the collecting loop with cleared
		// arrays; the failed attempt still leaves an audit trail.
		if dumped, dumpErr := s.sessions.Get(ctx, userID); dumpErr == nil && dumped != nil {
			s.dumpSession(dumped, true)
		}
		empty := entity.QueryBundle{}
		s.patch(ctx, userID, entity.SessionPatch{
			Query: &empty,
			State: entity.StatePtr(entity.StateCollectingQuery),
		})
		s.sendText(ctx, phoneNumberID, userID, fmt.Sprintf("कृपया %s के बारे में ही पूछें।", session.Crop))
		s.sendText(ctx, phoneNumberID, userID, msgResendQuery)
		return

	case AggregationError:
		s.finishCycle(ctx, userID, true)
		s.sendText(ctx, phoneNumberID, userID, msgAggregationFailed)
		return
	}

	session = s.patch(ctx, userID, entity.SessionPatch{AggregatedQuery: entity.StrPtr(agg.Text)})
	if session == nil {
		s.sendText(ctx, phoneNumberID, userID, msgAdviceFailed)
		return
	}

	art, err := s.advisor.GenerateAdvice(ctx, session.Crop, session.IsExistingCrop, agg.Text)

	patch := entity.SessionPatch{}
	if len(art.DecomposedQueries) > 0 {
		patch.DecomposedQueries = &art.DecomposedQueries
	}
	if len(art.RagResults) > 0 {
		patch.RagResults = &art.RagResults
	}
	if len(art.Responses) > 0 {
		patch.AdviceResponses = &art.Responses
	}
	s.patch(ctx, userID, patch)

	finalText := art.FinalText
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			finalText = msgAdviceTimeout
		} else {
			finalText = msgAdviceFailed
		}
	}

	s.finishCycle(ctx, userID, err != nil)
	s.sendText(ctx, phoneNumberID, userID, finalText)
}

// finishCycle dumps the session for audit, drops it, and seeds a fresh
// greeting-state session so the next message restarts the flow.
func (s *conversationService) finishCycle(ctx context.Context, userID string, failed bool) {
	if session, err := s.sessions.Get(ctx, userID); err == nil && session != nil {
		s.dumpSession(session, failed)
	}
	if err := s.sessions.Delete(ctx, userID); err != nil {
		s.log.Warn("conversation_service", "session delete failed", map[string]interface{}{
			"user": userID, "error": err.Error(),
		})
	}
	_, _ = s.createSession(ctx, userID)
}

func (s *conversationService) dumpSession(session *entity.Session, failed bool) {
	if err := s.publisher.PublishSessionDump(session, failed); err != nil {
		s.log.Warn("conversation_service", "session dump publish failed", map[string]interface{}{
			"user": session.UserID, "error": err.Error(),
		})
	}
}

func (s *conversationService) createSession(ctx context.Context, userID string) (*entity.Session, error) {
	now := time.Now().UnixMilli()
	session := &entity.Session{
		UserID:    userID,
		SessionID: uuid.NewString(),
		State:     entity.StateGreeting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		s.log.Error("conversation_service", "session create failed", map[string]interface{}{
			"user": userID, "error": err.Error(),
		})
		return nil, err
	}
	return session, nil
}

func (s *conversationService) resetToMenu(ctx context.Context, messageID, phoneNumberID, userID string) {
	s.patch(ctx, userID, entity.SessionPatch{State: entity.StatePtr(entity.StateAwaitingMenuChoice)})
	s.sendWelcomeMenu(ctx, messageID, phoneNumberID, userID)
}

func (s *conversationService) scheduleWelcomeMenu(messageID, phoneNumberID, userID string) {
	s.sched.Schedule(userID, s.menuDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.sender.SendWelcomeMenu(ctx, messageID, phoneNumberID, userID); err != nil {
			s.logSendError(userID, err)
		}
	})
}

func (s *conversationService) clearPendingCrop(ctx context.Context, userID string, state *entity.SessionState) {
	empty := []entity.CropOption{}
	s.patch(ctx, userID, entity.SessionPatch{
		State:               state,
		PendingCrop:         entity.StrPtr(""),
		PendingCropHi:       entity.StrPtr(""),
		PendingCropExisting: entity.BoolPtr(false),
		PendingCropOptions:  &empty,
	})
}

func (s *conversationService) patch(ctx context.Context, userID string, patch entity.SessionPatch) *entity.Session {
	session, err := s.sessions.Update(ctx, userID, patch)
	if err != nil {
		s.log.Error("conversation_service", "session update failed", map[string]interface{}{
			"user": userID, "error": err.Error(),
		})
		return nil
	}
	return session
}

func (s *conversationService) sendText(ctx context.Context, phoneNumberID, userID, text string) {
	if err := s.sender.SendText(ctx, phoneNumberID, userID, text); err != nil {
		s.logSendError(userID, err)
	}
}

func (s *conversationService) sendWelcomeMenu(ctx context.Context, messageID, phoneNumberID, userID string) {
	if err := s.sender.SendWelcomeMenu(ctx, messageID, phoneNumberID, userID); err != nil {
		s.logSendError(userID, err)
	}
}

func (s *conversationService) logSendError(userID string, err error) {
	s.log.Warn("conversation_service", "outbound send failed", map[string]interface{}{
		"user": userID, "error": err.Error(),
	})
}

func isTimeout(err error) bool {
	return errors.Is(err, orchestrator.ErrTimeout) || errors.Is(err, orchestrator.ErrBudgetExceeded)
}
