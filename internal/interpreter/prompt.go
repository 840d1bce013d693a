package interpreter

// PromptVersion identifies the output contract below. Any change to field
// names or enum spellings must land together with the matching change in
// the rules package.
const PromptVersion = "v2"

// Prompt is the fixed instruction sent with every sign photo.
const Prompt = `Analyze this image. First, determine if this is a street parking sign or plate.
If it is NOT a parking sign, return JSON with "is_parking_sign": false.
If it IS a parking sign, return JSON with:
- "is_parking_sign": true
- "description": A brief human-readable description of the parking spot
- "periods": Array of parking period objects with fields:
  - "time_limit_mins": Number of minutes allowed (e.g., 15, 30, 60, 120) or null for unrestricted
  - "payment_type": One of "FREE", "METERED", "TICKET", "PERMIT", "NO_PARKING"
  - "days_of_week": Array of day codes (e.g., ["MON", "TUE", "WED", "THU", "FRI"]) or empty array for all days
  - "start_time": Start time in 24h format (e.g., "08:00") or null for all day
  - "end_time": End time in 24h format (e.g., "18:00") or null for all day
  - "special_conditions": Any special notes (e.g., "Except Public Holidays", "Loading Zone") or null
- "raw_text": All text visible on the sign.

Return a single JSON object and nothing else.

Examples:
- "2P Mon-Fri 8am-6pm Meter" → time_limit_mins: 120, payment_type: "METERED", days_of_week: ["MON","TUE","WED","THU","FRI"], start_time: "08:00", end_time: "18:00"
- "1/2P Ticket" → time_limit_mins: 30, payment_type: "TICKET", days_of_week: [], start_time: null, end_time: null
- "No Parking 7am-9am Mon-Fri" → time_limit_mins: null, payment_type: "NO_PARKING", days_of_week: ["MON","TUE","WED","THU","FRI"], start_time: "07:00", end_time: "09:00"
`
