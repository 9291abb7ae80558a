// Package i18n holds the booth's user-facing strings.
package i18n

import (
	"golang.org/x/text/language"
)

// Fallback is used for unknown languages and missing translations.
const Fallback = "en"

var tables = map[string]map[string]string{
	"en": {
		"status.idle":       "Ready",
		"status.countdown":  "Get ready!",
		"status.capturing":  "Capturing...",
		"status.processing": "Creating your photo strip...",
		"status.complete":   "Done!",
		"action.capture":    "Take photo",
		"action.retake":     "Retake",
		"action.download":   "Download",
		"action.save":       "Save to gallery",
		"action.delete":     "Delete",
		"gallery.title":     "Gallery",
		"gallery.empty":     "No photos yet",
		"stats.total":       "Photos",
		"stats.stickers":    "Stickers used",
		"error.camera":      "Camera is not available",
		"error.capture":     "Could not take the photo",
		"error.images":      "Not enough photos could be loaded",
		"error.storage":     "Could not save the gallery",
	},
	"es": {
		"status.idle":       "Listo",
		"status.countdown":  "¡Prepárate!",
		"status.capturing":  "Capturando...",
		"status.processing": "Creando tu tira de fotos...",
		"status.complete":   "¡Listo!",
		"action.capture":    "Tomar foto",
		"action.retake":     "Repetir",
		"action.download":   "Descargar",
		"action.save":       "Guardar en la galería",
		"action.delete":     "Eliminar",
		"gallery.title":     "Galería",
		"gallery.empty":     "Aún no hay fotos",
		"stats.total":       "Fotos",
		"stats.stickers":    "Pegatinas usadas",
		"error.camera":      "La cámara no está disponible",
		"error.capture":     "No se pudo tomar la foto",
		"error.images":      "No se pudieron cargar suficientes fotos",
		"error.storage":     "No se pudo guardar la galería",
	},
	"fr": {
		"status.idle":       "Prêt",
		"status.countdown":  "Préparez-vous !",
		"status.capturing":  "Capture...",
		"status.processing": "Création de votre bande photo...",
		"status.complete":   "Terminé !",
		"action.capture":    "Prendre une photo",
		"action.retake":     "Reprendre",
		"action.download":   "Télécharger",
		"action.save":       "Enregistrer dans la galerie",
		"action.delete":     "Supprimer",
		"gallery.title":     "Galerie",
		"gallery.empty":     "Pas encore de photos",
		"stats.total":       "Photos",
		"stats.stickers":    "Autocollants utilisés",
		"error.camera":      "La caméra n'est pas disponible",
		"error.capture":     "Impossible de prendre la photo",
		"error.images":      "Trop peu de photos ont pu être chargées",
		"error.storage":     "Impossible d'enregistrer la galerie",
	},
	"de": {
		"status.idle":       "Bereit",
		"status.countdown":  "Mach dich bereit!",
		"status.capturing":  "Aufnahme...",
		"status.processing": "Fotostreifen wird erstellt...",
		"status.complete":   "Fertig!",
		"action.capture":    "Foto aufnehmen",
		"action.retake":     "Wiederholen",
		"action.download":   "Herunterladen",
		"action.save":       "In Galerie speichern",
		"action.delete":     "Löschen",
		"gallery.title":     "Galerie",
		"gallery.empty":     "Noch keine Fotos",
		"stats.total":       "Fotos",
		"stats.stickers":    "Verwendete Sticker",
		"error.camera":      "Kamera ist nicht verfügbar",
		"error.capture":     "Foto konnte nicht aufgenommen werden",
		"error.images":      "Zu wenige Fotos konnten geladen werden",
		"error.storage":     "Galerie konnte nicht gespeichert werden",
	},
	"ja": {
		"status.idle":       "準備完了",
		"status.countdown":  "準備してね！",
		"status.capturing":  "撮影中...",
		"status.processing": "フォトストリップを作成中...",
		"status.complete":   "完成！",
		"action.capture":    "撮影する",
		"action.retake":     "撮り直す",
		"action.download":   "ダウンロード",
		"action.save":       "ギャラリーに保存",
		"action.delete":     "削除",
		"gallery.title":     "ギャラリー",
		"gallery.empty":     "まだ写真がありません",
		"stats.total":       "写真",
		"stats.stickers":    "使用したステッカー",
		"error.camera":      "カメラを利用できません",
		"error.capture":     "撮影できませんでした",
		"error.images":      "読み込めた写真が足りません",
		"error.storage":     "ギャラリーを保存できませんでした",
	},
	"zh": {
		"status.idle":       "就绪",
		"status.countdown":  "准备好！",
		"status.capturing":  "拍摄中...",
		"status.processing": "正在生成照片条...",
		"status.complete":   "完成！",
		"action.capture":    "拍照",
		"action.retake":     "重拍",
		"action.download":   "下载",
		"action.save":       "保存到相册",
		"action.delete":     "删除",
		"gallery.title":     "相册",
		"gallery.empty":     "还没有照片",
		"stats.total":       "照片",
		"stats.stickers":    "使用的贴纸",
		"error.camera":      "相机不可用",
		"error.capture":     "无法拍照",
		"error.images":      "可加载的照片不足",
		"error.storage":     "无法保存相册",
	},
}

// supported lists matcher tags; the first entry is the default.
var supported = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
	language.Japanese,
	language.Chinese,
}

var matcher = language.NewMatcher(supported)

// Languages returns the supported base language codes.
func Languages() []string {
	out := make([]string, 0, len(supported))
	for _, t := range supported {
		b, _ := t.Base()
		out = append(out, b.String())
	}
	return out
}

// Lookup returns the string for key in lang. Region subtags are ignored.
// Unknown languages use English; unknown keys return the key itself.
func Lookup(lang, key string) string {
	if s, ok := table(lang)[key]; ok {
		return s
	}
	if s, ok := tables[Fallback][key]; ok {
		return s
	}
	return key
}

func table(lang string) map[string]string {
	if t, ok := tables[lang]; ok {
		return t
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return tables[Fallback]
	}
	b, _ := tag.Base()
	if t, ok := tables[b.String()]; ok {
		return t
	}
	return tables[Fallback]
}

// Match picks the best supported language for an Accept-Language header.
func Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Fallback
	}
	b, _ := supported[idx].Base()
	return b.String()
}
