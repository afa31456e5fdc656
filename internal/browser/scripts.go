package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Page-side helpers. Each is a function expression invoked by callScript with
// JSON encoded arguments. Result keys match the json tags of the schemas types.

// scrollTargetJS resolves the scroll container; an empty selector means the
// document's scrolling element.
const scrollTargetJS = `function __target(sel) {
	if (!sel) { return document.scrollingElement || document.documentElement; }
	const el = document.querySelector(sel);
	if (!el) { throw new Error("no element matches " + sel); }
	return el;
}`

const rectsJS = `(sel) => Array.from(document.querySelectorAll(sel)).map((el) => {
	const r = el.getBoundingClientRect();
	const attributes = {};
	for (const a of Array.from(el.attributes)) { attributes[a.name.toLowerCase()] = a.value; }
	return {
		id: el.id || "",
		x: r.x, y: r.y, width: r.width, height: r.height,
		attributes: attributes,
	};
})`

const computedStyleJS = `(sel, index, prop) => {
	const all = document.querySelectorAll(sel);
	if (index < 0 || index >= all.length) { return { found: false, value: "" }; }
	return { found: true, value: window.getComputedStyle(all[index]).getPropertyValue(prop) };
}`

const scrollOffsetJS = `(sel) => {
	` + scrollTargetJS + `
	return __target(sel).scrollTop;
}`

const setScrollOffsetJS = `(sel, y) => {
	` + scrollTargetJS + `
	__target(sel).scrollTop = y;
	return true;
}`

const scrollExtentJS = `(sel) => {
	` + scrollTargetJS + `
	const el = __target(sel);
	return { scroll_height: el.scrollHeight, client_height: el.clientHeight };
}`

// mediaJS reports the layout box, which ignores CSS transforms, so a rotated
// element keeps its laid out width and height.
const mediaJS = `(sel) => Array.from(document.querySelectorAll(sel)).map((el) => {
	const attributes = {};
	for (const a of Array.from(el.attributes)) { attributes[a.name.toLowerCase()] = a.value; }
	const isVideo = el.tagName === "VIDEO";
	return {
		source: el.currentSrc || el.getAttribute("src") || "",
		attributes: attributes,
		complete: isVideo ? el.readyState >= 1 : !!el.complete,
		natural_width: (isVideo ? el.videoWidth : el.naturalWidth) || 0,
		natural_height: (isVideo ? el.videoHeight : el.naturalHeight) || 0,
		displayed_width: el.clientWidth || el.offsetWidth || 0,
		displayed_height: el.clientHeight || el.offsetHeight || 0,
	};
})`

const separatorsJS = `(sel) => Array.from(document.querySelectorAll(sel)).map((el) => ({
	id: el.id || "",
	top: el.getBoundingClientRect().top + window.scrollY,
}))`

const idsJS = `() => Array.from(document.querySelectorAll("[id]")).map((el) => el.id)`

// invokeHookJS returns false when the hook is not a function so the caller can
// tell a missing hook apart from a failing one.
const invokeHookJS = `async (name) => {
	const fn = window[name];
	if (typeof fn !== "function") { return false; }
	await fn();
	return true;
}`

// callScript renders an immediately invoked call of fn with args.
func callScript(fn string, args ...interface{}) (string, error) {
	encoded := make([]string, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("failed to encode script argument: %w", err)
		}
		encoded = append(encoded, string(b))
	}
	return fmt.Sprintf("(%s)(%s)", fn, strings.Join(encoded, ", ")), nil
}
