package gcp

import (
	"context"
	"fmt"
	"strings"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"github.com/googleapis/gax-go/v2"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/toktik-backend/internal/domain"
	"github.com/yungbote/toktik-backend/internal/platform/ctxutil"
	"github.com/yungbote/toktik-backend/internal/platform/logger"
)

const defaultMinConfidence = 0.5

type VideoConfig struct {
	Credentials Credentials
	// MinConfidence drops labels whose best segment confidence is below it.
	// Zero means the default; a negative value keeps every label.
	MinConfidence float64
	// SubmitRate caps AnnotateVideo calls per second. Zero leaves
	// submissions unthrottled.
	SubmitRate float64
	// ClientOptions are appended after the credential options.
	ClientOptions []option.ClientOption
}

// VideoAnalyzer submits label-detection jobs to Video Intelligence and
// reports their status. The job id is the long-running operation name.
type VideoAnalyzer struct {
	log     *logger.Logger
	client  *videointelligence.Client
	minConf float64
	limiter *rate.Limiter
}

func NewVideoAnalyzer(ctx context.Context, log *logger.Logger, cfg VideoConfig) (*VideoAnalyzer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	opts := append(ClientOptions(cfg.Credentials), cfg.ClientOptions...)
	c, err := videointelligence.NewClient(ctxutil.Default(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}
	minConf := cfg.MinConfidence
	if minConf == 0 {
		minConf = defaultMinConfidence
	}
	limit := rate.Inf
	if cfg.SubmitRate > 0 {
		limit = rate.Limit(cfg.SubmitRate)
	}
	return &VideoAnalyzer{
		log:     log.With("service", "gcp.VideoAnalyzer"),
		client:  c,
		minConf: minConf,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

func (s *VideoAnalyzer) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *VideoAnalyzer) Submit(ctx context.Context, input string) (string, error) {
	ctx = ctxutil.Default(ctx)
	uri := strings.TrimSpace(input)
	if !strings.HasPrefix(uri, "gs://") {
		return "", domain.InvalidInputf("analysis input must be gs://... got %q", input)
	}
	req := &vipb.AnnotateVideoRequest{
		InputUri: uri,
		Features: []vipb.Feature{vipb.Feature_LABEL_DETECTION},
		VideoContext: &vipb.VideoContext{
			LabelDetectionConfig: &vipb.LabelDetectionConfig{
				LabelDetectionMode: vipb.LabelDetectionMode_SHOT_MODE,
			},
		},
	}
	if s.minConf > 0 {
		req.VideoContext.LabelDetectionConfig.VideoConfidenceThreshold = float32(s.minConf)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Wait refuses up front when the deadline would pass first.
		return "", fmt.Errorf("submit throttled: %w", context.DeadlineExceeded)
	}
	// One attempt only. A timed-out or dropped call may still have started a
	// billed job, so the client library's default retry is disabled too.
	op, err := s.client.AnnotateVideo(ctx, req, gax.WithRetry(nil))
	if err != nil {
		return "", fmt.Errorf("videointelligence AnnotateVideo: %w", err)
	}
	s.log.Debug("Label detection submitted", "job_id", op.Name(), "input_uri", uri)
	return op.Name(), nil
}

// Poll returns the current status of a job. A failed operation is reported as
// PollFailed; an error means the status itself could not be read.
func (s *VideoAnalyzer) Poll(ctx context.Context, jobID string) (domain.AnalysisPoll, error) {
	ctx = ctxutil.Default(ctx)
	op := s.client.AnnotateVideoOperation(jobID)
	resp, err := op.Poll(ctx)
	if err != nil {
		if op.Done() {
			return domain.AnalysisPoll{Status: domain.PollFailed, Detail: status.Convert(err).Message()}, nil
		}
		return domain.AnalysisPoll{}, fmt.Errorf("videointelligence poll %s: %w", jobID, err)
	}
	if !op.Done() {
		return domain.AnalysisPoll{Status: domain.PollRunning}, nil
	}
	return pollFromResponse(resp, s.minConf), nil
}

func pollFromResponse(resp *vipb.AnnotateVideoResponse, minConf float64) domain.AnalysisPoll {
	if resp == nil || len(resp.AnnotationResults) == 0 || resp.AnnotationResults[0] == nil {
		return domain.AnalysisPoll{Status: domain.PollSucceeded, Detail: "no annotation results"}
	}
	ar := resp.AnnotationResults[0]
	if ar.Error != nil && ar.Error.Code != int32(codes.OK) {
		return domain.AnalysisPoll{Status: domain.PollFailed, Detail: ar.Error.Message}
	}
	return domain.AnalysisPoll{Status: domain.PollSucceeded, Labels: parseLabels(ar.SegmentLabelAnnotations, minConf)}
}

// parseLabels keeps the service's order. A label's confidence is its best
// segment confidence.
func parseLabels(ann []*vipb.LabelAnnotation, minConf float64) []domain.Label {
	out := make([]domain.Label, 0, len(ann))
	for _, la := range ann {
		if la == nil || la.Entity == nil {
			continue
		}
		best := 0.0
		for _, seg := range la.Segments {
			if seg != nil && float64(seg.Confidence) > best {
				best = float64(seg.Confidence)
			}
		}
		if minConf > 0 && best < minConf {
			continue
		}
		out = append(out, domain.Label{Name: strings.TrimSpace(la.Entity.Description), Confidence: best})
	}
	return out
}
