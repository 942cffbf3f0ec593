package application

import (
	"fmt"
	"strings"
	"time"
)

const (
	bookedMessage        = "予約が完了しました"
	noSchedulableMessage = "登録可能な日程がありませんでした"
	voidedNoticeHeader   = "【重要】教員が後日授業を登録したため、以下の予約は授業が優先され、取り消されました。日時を変更してください：\n"
)

var weekdayLabels = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// WeekdayLabel returns the single character label for wd.
func WeekdayLabel(wd time.Weekday) string {
	if wd < time.Sunday || wd > time.Saturday {
		return ""
	}
	return weekdayLabels[wd]
}

func registeredMessage(count int) string {
	if count == 0 {
		return noSchedulableMessage
	}
	return fmt.Sprintf("%d件の授業を登録しました（重複する学生予約は自動解除されます）", count)
}

func cancelledGroupMessage(name, start string, removed int) string {
	return fmt.Sprintf("%s (%s〜) の予約を %d 件削除しました。", name, start, removed)
}

func voidedEntry(r Reservation) string {
	return r.DateString() + " " + r.Start.String()
}

func voidedNotice(entries []string) string {
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = entry + "の予約"
	}
	return voidedNoticeHeader + strings.Join(lines, "\n")
}
