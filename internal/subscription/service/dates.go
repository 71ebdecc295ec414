package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/membership/internal/config"
	subscriptiondomain "github.com/smallbiznis/membership/internal/subscription/domain"
)

// StartDate implements domain.Service.
func (s *Service) StartDate(subscription *subscriptiondomain.Subscription, format string, local bool) (string, bool) {
	if subscription == nil {
		return "", false
	}
	return s.formatDate(subscription.StartDate, format, local)
}

// EndDate implements domain.Service.
func (s *Service) EndDate(subscription *subscriptiondomain.Subscription, format string, local bool) (string, bool) {
	if subscription == nil {
		return "", false
	}
	return s.formatDate(subscription.EndDate, format, local)
}

// NextPaymentDate implements domain.Service.
func (s *Service) NextPaymentDate(subscription *subscriptiondomain.Subscription, format string, local bool) (string, bool) {
	if subscription == nil {
		return "", false
	}
	return s.formatDate(subscription.NextPaymentDate, format, local)
}

// formatDate renders t as unix seconds, the site date layout or a Go layout.
// Unix seconds do not depend on local.
func (s *Service) formatDate(t *time.Time, format string, local bool) (string, bool) {
	if t == nil || t.IsZero() {
		return "", false
	}

	site := s.site.Get()
	value := t.UTC()
	if local {
		value = value.In(site.Location())
	}

	switch strings.TrimSpace(format) {
	case subscriptiondomain.FormatTimestamp:
		return strconv.FormatInt(value.Unix(), 10), true
	case subscriptiondomain.FormatDateFormat:
		layout := site.DateFormat
		if layout == "" {
			layout = config.DefaultSiteSettings().DateFormat
		}
		return value.Format(layout), true
	case "":
		return value.Format(subscriptiondomain.DateLayout), true
	default:
		return value.Format(format), true
	}
}
